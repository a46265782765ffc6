package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"nhooyr.io/websocket"
)

const (
	// maxFrameBytes replaces the library's small default read limit, merged
	// forward messages easily exceed it.
	maxFrameBytes = 16 << 20

	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = time.Minute
)

// Client maintains the forward WebSocket connection to a OneBot v11
// endpoint: it receives event pushes and multiplexes API calls over the same
// connection, matching responses by echo.
type Client struct {
	url    string
	token  string
	logger *log.Logger

	onGroupMessage func(*Event)

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan json.RawMessage
	seq     atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new OneBot client
func NewClient(url, accessToken string, logger *log.Logger) *Client {
	return &Client{
		url:     url,
		token:   accessToken,
		logger:  logger,
		pending: make(map[string]chan json.RawMessage),
	}
}

// OnGroupMessage sets the group message handler
func (c *Client) OnGroupMessage(handler func(*Event)) {
	c.onGroupMessage = handler
}

// Start connects and reads events until Stop is called, reconnecting with
// capped exponential backoff whenever the connection drops.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	delay := reconnectBaseDelay
	for {
		start := time.Now()
		err := c.runOnce(c.ctx)
		if c.ctx.Err() != nil {
			return nil
		}

		// A connection that lived for a while resets the backoff
		if time.Since(start) > time.Minute {
			delay = reconnectBaseDelay
		}
		c.logger.Error("onebot connection lost, reconnecting", "error", err, "delay", delay)

		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// Stop closes the connection and stops reconnecting
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return err
	}
	conn.SetReadLimit(maxFrameBytes)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		for echo, ch := range c.pending {
			close(ch)
			delete(c.pending, echo)
		}
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.logger.Info("connected to onebot endpoint", "url", c.url)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		c.dispatch(data)
	}
}

// dispatch routes one frame: API responses carry an echo, everything else is
// an event push.
func (c *Client) dispatch(data []byte) {
	var frame struct {
		PostType    string `json:"post_type"`
		MessageType string `json:"message_type"`
		Echo        string `json:"echo"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Debug("undecodable frame dropped", "error", err)
		return
	}

	if frame.Echo != "" {
		c.mu.Lock()
		ch, ok := c.pending[frame.Echo]
		if ok {
			delete(c.pending, frame.Echo)
		}
		c.mu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
		return
	}

	if frame.PostType != "message" || frame.MessageType != "group" {
		return
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Warn("undecodable group message dropped", "error", err)
		return
	}
	if c.onGroupMessage != nil {
		c.onGroupMessage(&event)
	}
}

// call performs one API action over the active connection and decodes the
// response data into out.
func (c *Client) call(ctx context.Context, action string, params any, out any) error {
	echo := strconv.FormatInt(c.seq.Add(1), 10)
	ch := make(chan json.RawMessage, 1)

	c.mu.Lock()
	conn := c.conn
	if conn != nil {
		c.pending[echo] = ch
	}
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	defer func() {
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(struct {
		Action string `json:"action"`
		Params any    `json:"params,omitempty"`
		Echo   string `json:"echo"`
	}{Action: action, Params: params, Echo: echo})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", action, err)
	}

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("send %s request: %w", action, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw, ok := <-ch:
		if !ok {
			return errors.New("connection lost")
		}

		var resp struct {
			Status  string          `json:"status"`
			Retcode int             `json:"retcode"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("decode %s response: %w", action, err)
		}
		if resp.Retcode != 0 {
			return fmt.Errorf("%s failed: status %s retcode %d", action, resp.Status, resp.Retcode)
		}
		if out != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return fmt.Errorf("decode %s data: %w", action, err)
			}
		}
		return nil
	}
}

// GetGroupInfo fetches the group profile
func (c *Client) GetGroupInfo(ctx context.Context, groupID int64) (*GroupInfo, error) {
	var info GroupInfo
	if err := c.call(ctx, "get_group_info", map[string]any{"group_id": groupID}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetGroupMemberInfo fetches one member's profile
func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (*GroupMember, error) {
	var member GroupMember
	params := map[string]any{"group_id": groupID, "user_id": userID}
	if err := c.call(ctx, "get_group_member_info", params, &member); err != nil {
		return nil, err
	}
	return &member, nil
}
