package audit

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestMetadataMarshalFlat(t *testing.T) {
	m := Metadata{}.
		With("fields", []string{"status"}).
		With(KeyTags, []string{TagSuspicious}).
		With(KeySensitive, "pin=1234")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"fields", KeyTags, KeySensitive} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected top-level key %q in %s", key, data)
		}
	}
	if _, ok := raw["Extra"]; ok {
		t.Fatalf("Extra must not appear on the wire: %s", data)
	}
}

func TestMetadataUnmarshalRoutesReservedKeys(t *testing.T) {
	var m Metadata
	in := `{"tags":["suspicious","night"],"sensitive":{"card":"x"},"diff":{"before":1,"after":2},"format":"csv"}`
	if err := json.Unmarshal([]byte(in), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !m.HasTags() || !m.HasTag("SUSPICIOUS") {
		t.Fatalf("expected suspicious tag, got %v", m.Tags)
	}
	if m.Sensitive == nil || m.Diff == nil {
		t.Fatalf("expected sensitive and diff, got %+v", m)
	}
	if m.Extra["format"] != "csv" {
		t.Fatalf("expected format in Extra, got %v", m.Extra)
	}
	if _, ok := m.Extra[KeyTags]; ok {
		t.Fatal("reserved key leaked into Extra")
	}
}

func TestMetadataNullTagsIsAbsent(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"tags":null}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.HasTags() {
		t.Fatal("null tags must count as absent")
	}
}

func TestMetadataEmptyTagsIsPresent(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"tags":[]}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.HasTags() {
		t.Fatal("empty tags list must count as present")
	}
}

func TestMetadataCloneIsIndependent(t *testing.T) {
	orig := Metadata{Tags: []string{"a"}, Extra: map[string]any{"k": "v"}}
	cp := orig.Clone()
	cp.Tags[0] = "b"
	cp.Extra["k"] = "changed"

	if orig.Tags[0] != "a" || orig.Extra["k"] != "v" {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}

type diffPayload struct {
	Fields []string `json:"fields"`
}

func TestMetadataCloneIsDeep(t *testing.T) {
	src := Metadata{
		Tags:      []string{"night"},
		Sensitive: map[string]string{"pin": "1234"},
		Diff:      &diffPayload{Fields: []string{"status"}},
		Extra:     map[string]any{"ids": []string{"a"}, "count": 3},
	}
	cp := src.Clone()

	src.Tags[0] = "x"
	src.Sensitive.(map[string]string)["pin"] = "x"
	src.Diff.(*diffPayload).Fields[0] = "x"
	src.Extra["ids"].([]string)[0] = "x"

	if cp.Tags[0] != "night" || cp.Sensitive.(map[string]string)["pin"] != "1234" || cp.Extra["ids"].([]string)[0] != "a" {
		t.Fatalf("clone shares storage with source: %+v", cp)
	}
	diff, ok := cp.Diff.(map[string]any)
	if !ok {
		t.Fatalf("struct diff should be copied through its JSON form, got %T", cp.Diff)
	}
	if fields := diff["fields"].([]any); fields[0] != "status" {
		t.Fatalf("diff fields = %v", fields)
	}
	if cp.Extra["count"] != 3 {
		t.Fatalf("scalar changed type: %T", cp.Extra["count"])
	}
}
