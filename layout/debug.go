package layout

import (
	"encoding/json"
	"io"
	"os"
)

type debugFailure struct {
	Index     int    `json:"index"`
	SectionID string `json:"sectionId"`
	Error     string `json:"error"`
}

type debugDump struct {
	Plan     Plan           `json:"plan"`
	Failures []debugFailure `json:"failures,omitempty"`
}

// EncodeDebugJSON 将页面规划与跳过的段落输出为缩进 JSON。
func EncodeDebugJSON(w io.Writer, res *Result) error {
	if res == nil {
		return nil
	}
	dump := debugDump{Plan: res.Plan}
	for _, f := range res.Failures {
		dump.Failures = append(dump.Failures, debugFailure{Index: f.Index, SectionID: f.SectionID, Error: f.Err.Error()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

// WriteDebugJSON 将布局结果输出为 JSON 文件，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDebugJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
