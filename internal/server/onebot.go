package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/service"
	"github.com/xiaoxue1272/histories-collector/onebot"
)

// lookupTimeout bounds the profile lookups, not the archive work.
const lookupTimeout = 10 * time.Second

// OneBotServer bridges OneBot message events into the collector service
type OneBotServer struct {
	client     *onebot.Client
	svc        *service.CollectorService
	enablement domain.EnablementSet
	logger     *log.Logger

	// Group name cache
	groupNamesMu sync.RWMutex
	groupNames   map[int64]string
}

// NewOneBotServer creates a new OneBot server
func NewOneBotServer(
	client *onebot.Client,
	svc *service.CollectorService,
	enablement domain.EnablementSet,
	logger *log.Logger,
) *OneBotServer {
	return &OneBotServer{
		client:     client,
		svc:        svc,
		enablement: enablement,
		logger:     logger,
		groupNames: make(map[int64]string),
	}
}

// Start starts the server (blocking)
func (s *OneBotServer) Start() error {
	s.client.OnGroupMessage(s.handleEvent)
	return s.client.Start()
}

// Stop stops the server
func (s *OneBotServer) Stop() {
	s.client.Stop()
}

// handleEvent hands each event to its own goroutine. Attachment handling can
// take minutes and must not stall the websocket read loop.
func (s *OneBotServer) handleEvent(ev *onebot.Event) {
	go s.process(ev)
}

func (s *OneBotServer) process(ev *onebot.Event) {
	event := &domain.GroupMessageEvent{
		Time:      time.Unix(ev.Time, 0),
		MessageID: ev.MessageID,
		GroupID:   ev.GroupID,
		SenderID:  ev.UserID,
		Elements:  decodeMessage(ev.Message),
	}

	// Profile lookups only for groups the collector ingests, the service
	// drops everything else anyway
	if s.enablement.Enabled(ev.GroupID) {
		event.GroupName = s.groupName(ev.GroupID)
		s.resolveSender(ev, event)
	}

	s.svc.HandleEvent(context.Background(), event)
}

// resolveSender fills the sender fields from the event's sender block, or
// from a member lookup when the endpoint delivered none.
func (s *OneBotServer) resolveSender(ev *onebot.Event, event *domain.GroupMessageEvent) {
	if ev.Sender != nil {
		if ev.Sender.UserID != 0 {
			event.SenderID = ev.Sender.UserID
		}
		event.SenderName = ev.Sender.Nickname
		event.SenderCard = ev.Sender.Card
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	member, err := s.client.GetGroupMemberInfo(ctx, ev.GroupID, ev.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve sender", "group_id", ev.GroupID, "user_id", ev.UserID, "error", err)
		return
	}
	if member.UserID != 0 {
		event.SenderID = member.UserID
	}
	event.SenderName = member.Nickname
	event.SenderCard = member.Card
}

func (s *OneBotServer) groupName(groupID int64) string {
	s.groupNamesMu.RLock()
	name, ok := s.groupNames[groupID]
	s.groupNamesMu.RUnlock()
	if ok {
		return name
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	info, err := s.client.GetGroupInfo(ctx, groupID)
	if err != nil {
		s.logger.Warn("failed to resolve group name", "group_id", groupID, "error", err)
		return ""
	}

	s.groupNamesMu.Lock()
	s.groupNames[groupID] = info.GroupName
	s.groupNamesMu.Unlock()
	return info.GroupName
}
