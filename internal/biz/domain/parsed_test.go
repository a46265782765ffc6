package domain

import (
	"encoding/json"
	"testing"
)

func TestElement_Canonical_At(t *testing.T) {
	p := (Element{Type: ElementAt, Target: "10001", Name: "小明"}).Canonical()

	if p.Type != ElementAt {
		t.Errorf("Expected type at, got %s", p.Type)
	}
	if p.QQ != "10001" {
		t.Errorf("Expected qq 10001, got %q", p.QQ)
	}
	if p.Name != "小明" {
		t.Errorf("Expected name 小明, got %q", p.Name)
	}
}

func TestElement_Canonical_File(t *testing.T) {
	e := Element{
		Type: ElementFile,
		File: "c804de",
		URL:  "https://cdn.example.com/c804de",
		Name: "notes.txt",
	}
	p := e.Canonical()

	if p.File != "c804de" || p.URL != "https://cdn.example.com/c804de" || p.Name != "notes.txt" {
		t.Errorf("Unexpected file mapping: %+v", p)
	}
}

func TestElement_Canonical_Share(t *testing.T) {
	e := Element{
		Type:  ElementShare,
		URL:   "https://example.com/post/1",
		Title: "一篇文章",
		Desc:  "摘要",
	}
	p := e.Canonical()

	if p.URL != e.URL || p.Title != "一篇文章" || p.Content != "摘要" {
		t.Errorf("Unexpected share mapping: %+v", p)
	}
}

func TestElement_Canonical_Location(t *testing.T) {
	e := Element{Type: ElementLocation, Lat: 39.9042, Lon: 116.4074, Title: "北京", Desc: "天安门"}
	p := e.Canonical()

	if p.Lat != 39.9042 || p.Lon != 116.4074 {
		t.Errorf("Unexpected coordinates: %v %v", p.Lat, p.Lon)
	}
	if p.Title != "北京" || p.Content != "天安门" {
		t.Errorf("Unexpected location text: %+v", p)
	}
}

func TestElement_Canonical_Music(t *testing.T) {
	e := Element{
		Type:     ElementMusic,
		Platform: "163",
		RefID:    "28949129",
		URL:      "https://music.example.com/28949129",
		Audio:    "https://music.example.com/28949129.mp3",
		Title:    "歌名",
	}
	p := e.Canonical()

	if p.SubType != "163" || p.ID != "28949129" {
		t.Errorf("Unexpected music identity: %+v", p)
	}
	if p.URL != e.URL || p.Audio != e.Audio || p.Title != "歌名" {
		t.Errorf("Unexpected music payload: %+v", p)
	}
}

func TestElement_Canonical_Contact(t *testing.T) {
	p := (Element{Type: ElementContact, Platform: "qq", RefID: "10001"}).Canonical()

	if p.SubType != "qq" || p.ID != "10001" {
		t.Errorf("Unexpected contact mapping: %+v", p)
	}
}

func TestElement_Canonical_Reply(t *testing.T) {
	p := (Element{Type: ElementReply, ReplyID: "1718"}).Canonical()
	if p.ID != "1718" {
		t.Errorf("Expected reply id 1718, got %q", p.ID)
	}
}

func TestElement_Canonical_JSONKeepsRawString(t *testing.T) {
	raw := `{"app":"com.tencent.miniapp"}`
	p := (Element{Type: ElementJSON, Raw: raw}).Canonical()

	s, ok := p.Data.(string)
	if !ok {
		t.Fatalf("Expected data to hold the raw string, got %T", p.Data)
	}
	if s != raw {
		t.Errorf("Expected raw payload preserved, got %q", s)
	}
}

func TestParsedNode_JSONShape(t *testing.T) {
	p := Parsed{
		Type: ElementNode,
		Data: &ParsedNode{
			UserID:   10001,
			Nickname: "小明",
			Content:  []Parsed{{Type: ElementPlain, Text: "hi"}},
		},
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	want := `{"type":"node","data":{"user_id":10001,"nickname":"小明","content":[{"type":"plain","text":"hi"}]}}`
	if string(raw) != want {
		t.Errorf("Unexpected encoding: %s", raw)
	}
}

func TestParsed_WarnSerialized(t *testing.T) {
	p := (Element{Type: ElementImage, File: "a.image", URL: "https://cdn.example.com/a"}).Canonical()
	p.Warn = "文件大于50MB"

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["warn"] != "文件大于50MB" {
		t.Errorf("Expected warn field kept, got %v", decoded["warn"])
	}
	if decoded["type"] != "image" {
		t.Errorf("Expected element kept alongside warn, got %v", decoded["type"])
	}
}
