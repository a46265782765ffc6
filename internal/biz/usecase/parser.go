package usecase

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
)

// ChainParser handles message chain parsing
// Walks the element tree and produces the serialized form persisted under
// message_extra, resolving downloadable attachments along the way
type ChainParser struct {
	media  repo.MediaRepo
	logger *log.Logger
}

// NewChainParser creates a new chain parser
func NewChainParser(media repo.MediaRepo, logger *log.Logger) *ChainParser {
	return &ChainParser{
		media:  media,
		logger: logger,
	}
}

// Parse converts an element sequence into its persisted representation.
// Unsupported variants are dropped, everything else keeps its input position.
// Attachment trouble never fails the parse: the element is kept and annotated
// with the reason instead.
func (p *ChainParser) Parse(ctx context.Context, groupID int64, elements []domain.Element) []domain.Parsed {
	parsed := make([]domain.Parsed, 0, len(elements))
	for _, e := range elements {
		p.logger.Debug("parse element", "type", e.Type)
		if !e.Supported() {
			p.logger.Debug("unsupported element type, dropped", "type", e.Type)
			continue
		}

		switch e.Type {
		case domain.ElementNode:
			node := &domain.ParsedNode{Content: []domain.Parsed{}}
			if e.Node != nil {
				node.UserID = e.Node.SenderID
				node.Nickname = e.Node.SenderName
				node.Content = p.Parse(ctx, groupID, e.Node.Content)
			}
			parsed = append(parsed, domain.Parsed{Type: e.Type, Data: node})

		case domain.ElementNodes:
			messages := make([][]domain.Parsed, 0, len(e.Nodes))
			for _, group := range e.Nodes {
				messages = append(messages, p.Parse(ctx, groupID, group))
			}
			parsed = append(parsed, domain.Parsed{Type: e.Type, Messages: messages})

		default:
			parsed = append(parsed, p.parseLeaf(ctx, groupID, e))
		}
	}
	return parsed
}

func (p *ChainParser) parseLeaf(ctx context.Context, groupID int64, e domain.Element) domain.Parsed {
	leaf := e.Canonical()
	if !e.Downloadable() {
		return leaf
	}

	// 只处理远端附件, 本地或空定位符直接保留
	url := e.DownloadURL()
	if url == "" || !strings.HasPrefix(url, "http") {
		return leaf
	}

	ok, reason := p.media.Probe(ctx, url)
	if !ok {
		p.logger.Warn("attachment rejected", "group_id", groupID, "url", url, "reason", reason)
		leaf.Warn = reason
		return leaf
	}

	path, err := p.media.Fetch(ctx, groupID, e.FileName(), url)
	if err != nil {
		p.logger.Warn("attachment fetch failed", "group_id", groupID, "url", url, "error", err)
		leaf.Warn = "下载文件失败: " + err.Error()
		return leaf
	}
	leaf.Path = path
	return leaf
}
