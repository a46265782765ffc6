package domain

import "strings"

// outlineLimit bounds the summary length in runes.
const outlineLimit = 255

// Outline renders the element tree into the plain-text summary stored in the
// document's message field: plain text verbatim, every other variant as a
// short marker, in input order.
func Outline(elements []Element) string {
	var sb strings.Builder
	for _, e := range elements {
		sb.WriteString(outlineOf(e))
	}
	return truncateRunes(sb.String(), outlineLimit)
}

func outlineOf(e Element) string {
	switch e.Type {
	case ElementPlain:
		return e.Text
	case ElementImage:
		return "[图片]"
	case ElementRecord:
		return "[语音]"
	case ElementVideo:
		return "[视频]"
	case ElementFile:
		return "[文件]"
	case ElementAt:
		if e.Name != "" {
			return "@" + e.Name + " "
		}
		return "@" + e.Target + " "
	case ElementAtAll:
		return "@全体成员 "
	case ElementReply:
		return "[回复]"
	case ElementShare:
		return "[分享]"
	case ElementContact:
		return "[名片]"
	case ElementLocation:
		return "[位置]"
	case ElementMusic:
		return "[音乐]"
	case ElementJSON:
		return "[JSON]"
	case ElementForward:
		return "[转发]"
	case ElementNode, ElementNodes:
		return "[聊天记录]"
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
