package serializer

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Metadata 段落附加元数据
// 由检索层提供，键为字符串，值类型不固定
type Metadata map[string]interface{}

// Get 获取指定键的值
// 值为nil时视为不存在
func (m Metadata) Get(key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// GetOr 获取指定键的值，不存在时返回默认值
func (m Metadata) GetOr(key string, def interface{}) interface{} {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

// Truthy 判断值是否为"真"
// nil、false、数值0、空字符串以及空的切片/映射都视为假
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}

	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x != ""
		}
		return f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// display 将元数据值转换为可显示的字符串
// 整数值的浮点数按整数形式输出，JSON解码得到的页码不会变成1e+06
func display(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bitSize int) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	return fmt.Sprint(f)
}
