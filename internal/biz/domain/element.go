package domain

// ElementType identifies one variant of a message element.
type ElementType string

const (
	ElementPlain    ElementType = "plain"
	ElementImage    ElementType = "image"
	ElementRecord   ElementType = "record"
	ElementVideo    ElementType = "video"
	ElementFile     ElementType = "file"
	ElementAt       ElementType = "at"
	ElementAtAll    ElementType = "at_all"
	ElementNode     ElementType = "node"
	ElementNodes    ElementType = "nodes"
	ElementReply    ElementType = "reply"
	ElementShare    ElementType = "share"
	ElementContact  ElementType = "contact"
	ElementLocation ElementType = "location"
	ElementMusic    ElementType = "music"
	ElementJSON     ElementType = "json"
	ElementForward  ElementType = "forward"
	ElementUnknown  ElementType = "unknown"
)

// Element is one unit of a group message: a closed variant over the segment
// kinds the collector understands. Which payload fields are meaningful depends
// on Type; node and nodes are the two recursive container variants.
type Element struct {
	Type ElementType

	Text      string  // plain: message text
	File      string  // image/record/video/file: platform file handle (video keeps its download locator here)
	URL       string  // image/record/file: remote locator
	Name      string  // file: display name; at: mentioned member's display name
	Target    string  // at: mentioned account
	ReplyID   string  // reply: referenced message id
	Title     string  // share/location/music: title
	Desc      string  // share/location: descriptive text
	Lat, Lon  float64 // location
	Platform  string  // music: "qq"/"163"/"custom"; contact: "qq"/"group"
	RefID     string  // music: song id; contact: account id
	Audio     string  // music (custom): audio url
	Raw       string  // json: raw payload
	ForwardID string  // forward: forwarded-record handle

	Node  *ForwardNode // node: single forwarded node
	Nodes [][]Element  // nodes: ordered groups of forwarded content
}

// ForwardNode carries the sender attribution and nested content of one
// forwarded node. Content is itself an element sequence and may contain
// further node elements.
type ForwardNode struct {
	SenderID   int64
	SenderName string
	Content    []Element
}

// Supported reports whether the variant is one the parser handles.
// Unknown upstream variants are dropped during parsing, not errors.
func (e Element) Supported() bool {
	switch e.Type {
	case ElementPlain, ElementImage, ElementRecord, ElementVideo, ElementFile,
		ElementAt, ElementAtAll, ElementNode, ElementNodes, ElementReply,
		ElementShare, ElementContact, ElementLocation, ElementMusic,
		ElementJSON, ElementForward:
		return true
	}
	return false
}

// Downloadable reports whether the variant carries remote content subject to
// the attachment size policy.
func (e Element) Downloadable() bool {
	switch e.Type {
	case ElementImage, ElementRecord, ElementVideo, ElementFile:
		return true
	}
	return false
}

// DownloadURL resolves the remote locator for a downloadable element.
// Video keeps it in the file field, image and file in the url field; record
// carries no resolvable locator and returns "".
func (e Element) DownloadURL() string {
	switch e.Type {
	case ElementVideo:
		return e.File
	case ElementImage, ElementFile:
		return e.URL
	}
	return ""
}

// FileName returns the best display name for a downloadable element, used
// when spooling its content to disk.
func (e Element) FileName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.File
}
