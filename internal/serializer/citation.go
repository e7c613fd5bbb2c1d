package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CitationRecord 引用记录
// 记录某个段落的来源信息，用于在回答中展示证据
type CitationRecord struct {
	Page    interface{} `json:"page"`    // 页码
	Source  interface{} `json:"source"`  // 来源文档
	Snippet string      `json:"snippet"` // 内容摘要
}

// Citations 引用表
// 引用ID到引用记录的映射，迭代顺序与输入段落顺序一致
type Citations struct {
	ids     []string
	records map[string]CitationRecord
}

// NewCitations 创建空的引用表
func NewCitations() *Citations {
	return &Citations{
		records: make(map[string]CitationRecord),
	}
}

// Add 追加一条引用记录
// 已存在的ID只更新记录，不改变其位置
func (c *Citations) Add(id string, rec CitationRecord) {
	if c.records == nil {
		c.records = make(map[string]CitationRecord)
	}
	if _, ok := c.records[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.records[id] = rec
}

// Get 根据引用ID获取记录
func (c *Citations) Get(id string) (CitationRecord, bool) {
	if c == nil {
		return CitationRecord{}, false
	}
	rec, ok := c.records[id]
	return rec, ok
}

// IDs 按插入顺序返回所有引用ID
func (c *Citations) IDs() []string {
	if c == nil {
		return []string{}
	}
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Len 返回引用数量
func (c *Citations) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// Records 按插入顺序返回所有引用记录
func (c *Citations) Records() []CitationRecord {
	if c == nil {
		return []CitationRecord{}
	}
	recs := make([]CitationRecord, 0, len(c.ids))
	for _, id := range c.ids {
		recs = append(recs, c.records[id])
	}
	return recs
}

// MarshalJSON 输出为JSON对象，键顺序保持插入顺序
func (c *Citations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c != nil {
		for i, id := range c.ids {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(id)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(c.records[id])
			if err != nil {
				return nil, fmt.Errorf("failed to marshal citation %s: %w", id, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 从JSON对象解析引用表，保留对象中的键顺序
func (c *Citations) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		c.ids, c.records = nil, make(map[string]CitationRecord)
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("citations must be a JSON object")
	}

	c.ids = nil
	c.records = make(map[string]CitationRecord)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, _ := keyTok.(string)

		var rec CitationRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("invalid citation %s: %w", id, err)
		}
		c.Add(id, rec)
	}

	_, err = dec.Token()
	return err
}

// ResolvedCitation 回答中被引用的段落
type ResolvedCitation struct {
	ID string `json:"id"`
	CitationRecord
}

// citationRefRegex 匹配回答中的 [C1] 或 [C1, C3] 引用
var citationRefRegex = regexp.MustCompile(`\[\s*(C\d+(?:\s*,\s*C\d+)*)\s*\]`)

// ExtractCitationIDs 从文本中提取引用ID
// 结果去重，按首次出现的顺序返回
func ExtractCitationIDs(text string) []string {
	matches := citationRefRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	ids := make([]string, 0, len(matches))

	for _, match := range matches {
		for _, part := range strings.Split(match[1], ",") {
			id := normalizeCitationID(strings.TrimSpace(part))
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// normalizeCitationID 去掉数字前导零，C01 -> C1
func normalizeCitationID(id string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "C"))
	if err != nil {
		return id
	}
	return CitationID(n)
}

// Resolve 将文本中的引用映射回引用记录
// 引用表中不存在的ID放入unknown返回
func (c *Citations) Resolve(text string) ([]ResolvedCitation, []string) {
	found := []ResolvedCitation{}
	unknown := []string{}

	for _, id := range ExtractCitationIDs(text) {
		rec, ok := c.Get(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		found = append(found, ResolvedCitation{ID: id, CitationRecord: rec})
	}
	return found, unknown
}
