package server

import (
	"encoding/json"
	"strconv"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/onebot"
)

// decodeMessage converts a raw OneBot message payload into the element tree.
// Both wire forms are accepted: the segment array and the plain string some
// endpoints are configured to send. Decoding is lenient, a malformed payload
// yields no elements rather than an error.
func decodeMessage(raw json.RawMessage) []domain.Element {
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || text == "" {
			return nil
		}
		return []domain.Element{{Type: domain.ElementPlain, Text: text}}
	}

	var segments []onebot.Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil
	}

	elements := make([]domain.Element, 0, len(segments))
	for _, seg := range segments {
		elements = append(elements, decodeSegment(seg))
	}
	return elements
}

// decodeSegment maps one wire segment onto its element variant. Unrecognized
// segment types keep their wire name so the parser can report what it drops.
func decodeSegment(seg onebot.Segment) domain.Element {
	switch seg.Type {
	case "text":
		var d struct {
			Text string `json:"text"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementPlain, Text: d.Text}

	case "image":
		var d struct {
			File string `json:"file"`
			URL  string `json:"url"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementImage, File: d.File, URL: d.URL}

	case "record":
		var d struct {
			File string `json:"file"`
			URL  string `json:"url"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementRecord, File: d.File, URL: d.URL}

	case "video":
		var d struct {
			File string `json:"file"`
			URL  string `json:"url"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementVideo, File: d.File, URL: d.URL}

	case "file":
		var d struct {
			File   string `json:"file"`
			FileID string `json:"file_id"`
			URL    string `json:"url"`
			Name   string `json:"name"`
		}
		json.Unmarshal(seg.Data, &d)
		handle := d.FileID
		if handle == "" {
			handle = d.File
		}
		name := d.Name
		if name == "" {
			name = d.File
		}
		return domain.Element{Type: domain.ElementFile, File: handle, URL: d.URL, Name: name}

	case "at":
		var d struct {
			QQ   string `json:"qq"`
			Name string `json:"name"`
		}
		json.Unmarshal(seg.Data, &d)
		if d.QQ == "all" {
			return domain.Element{Type: domain.ElementAtAll}
		}
		return domain.Element{Type: domain.ElementAt, Target: d.QQ, Name: d.Name}

	case "reply":
		var d struct {
			ID string `json:"id"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementReply, ReplyID: d.ID}

	case "share":
		var d struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementShare, URL: d.URL, Title: d.Title, Desc: d.Content}

	case "contact":
		var d struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementContact, Platform: d.Type, RefID: d.ID}

	case "location":
		var d struct {
			Lat     string `json:"lat"`
			Lon     string `json:"lon"`
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		json.Unmarshal(seg.Data, &d)
		lat, _ := strconv.ParseFloat(d.Lat, 64)
		lon, _ := strconv.ParseFloat(d.Lon, 64)
		return domain.Element{Type: domain.ElementLocation, Lat: lat, Lon: lon, Title: d.Title, Desc: d.Content}

	case "music":
		var d struct {
			Type  string `json:"type"`
			ID    string `json:"id"`
			URL   string `json:"url"`
			Audio string `json:"audio"`
			Title string `json:"title"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementMusic, Platform: d.Type, RefID: d.ID, URL: d.URL, Audio: d.Audio, Title: d.Title}

	case "json":
		var d struct {
			Data string `json:"data"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementJSON, Raw: d.Data}

	case "forward":
		var d struct {
			ID string `json:"id"`
		}
		json.Unmarshal(seg.Data, &d)
		return domain.Element{Type: domain.ElementForward, ForwardID: d.ID}

	case "node":
		// user_id arrives as number or numeric string depending on the
		// endpoint, json.Number takes both
		var d struct {
			UserID   json.Number     `json:"user_id"`
			Uin      json.Number     `json:"uin"`
			Nickname string          `json:"nickname"`
			Name     string          `json:"name"`
			Content  json.RawMessage `json:"content"`
		}
		json.Unmarshal(seg.Data, &d)

		senderID, _ := d.UserID.Int64()
		if senderID == 0 {
			senderID, _ = d.Uin.Int64()
		}
		senderName := d.Nickname
		if senderName == "" {
			senderName = d.Name
		}
		return domain.Element{Type: domain.ElementNode, Node: &domain.ForwardNode{
			SenderID:   senderID,
			SenderName: senderName,
			Content:    decodeMessage(d.Content),
		}}

	case "nodes":
		// Pre-merged forwarded batch: each entry is itself a message payload
		var d struct {
			Messages []json.RawMessage `json:"messages"`
		}
		json.Unmarshal(seg.Data, &d)

		groups := make([][]domain.Element, 0, len(d.Messages))
		for _, msg := range d.Messages {
			groups = append(groups, decodeMessage(msg))
		}
		return domain.Element{Type: domain.ElementNodes, Nodes: groups}
	}

	return domain.Element{Type: domain.ElementType(seg.Type)}
}
