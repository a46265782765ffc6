package domain

// Parsed is the serialized form of one element as persisted under the
// document's message_extra field. A single struct covers every leaf variant;
// unused fields are omitted from the JSON encoding.
type Parsed struct {
	Type ElementType `json:"type"`

	Text    string  `json:"text,omitempty"`
	File    string  `json:"file,omitempty"`
	URL     string  `json:"url,omitempty"`
	Path    string  `json:"path,omitempty"` // local spool path after a successful fetch
	Name    string  `json:"name,omitempty"`
	QQ      string  `json:"qq,omitempty"`
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	SubType string  `json:"subtype,omitempty"`
	Audio   string  `json:"audio,omitempty"`

	// Data holds a *ParsedNode for node elements and the raw payload string
	// for json elements; both serialize under the same key upstream.
	Data any `json:"data,omitempty"`

	// Messages holds the per-group parsed sequences of a nodes element.
	Messages [][]Parsed `json:"messages,omitempty"`

	// Warn carries the reason an attachment was not resolved. The element
	// itself is always kept.
	Warn string `json:"warn,omitempty"`
}

// ParsedNode is the data payload of a parsed node element.
type ParsedNode struct {
	UserID   int64    `json:"user_id"`
	Nickname string   `json:"nickname"`
	Content  []Parsed `json:"content"`
}

// Canonical maps a leaf element onto its serialized field representation.
// Container variants (node, nodes) are assembled by the parser, which recurses
// into their content before filling Data or Messages.
func (e Element) Canonical() Parsed {
	p := Parsed{Type: e.Type}
	switch e.Type {
	case ElementPlain:
		p.Text = e.Text
	case ElementImage, ElementRecord, ElementVideo:
		p.File = e.File
		p.URL = e.URL
	case ElementFile:
		p.File = e.File
		p.URL = e.URL
		p.Name = e.Name
	case ElementAt:
		p.QQ = e.Target
		p.Name = e.Name
	case ElementAtAll:
		// type alone identifies the variant
	case ElementReply:
		p.ID = e.ReplyID
	case ElementShare:
		p.URL = e.URL
		p.Title = e.Title
		p.Content = e.Desc
	case ElementContact:
		p.SubType = e.Platform
		p.ID = e.RefID
	case ElementLocation:
		p.Lat = e.Lat
		p.Lon = e.Lon
		p.Title = e.Title
		p.Content = e.Desc
	case ElementMusic:
		p.SubType = e.Platform
		p.ID = e.RefID
		p.URL = e.URL
		p.Audio = e.Audio
		p.Title = e.Title
	case ElementJSON:
		p.Data = e.Raw
	case ElementForward:
		p.ID = e.ForwardID
	}
	return p
}
