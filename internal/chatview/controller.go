// Package chatview drives one user's open conversation with a peer: it keeps
// the user's presence current, renders the peer header and the message list,
// and acknowledges the peer's messages as they arrive.
package chatview

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/convkey"
	"github.com/IgoorDrt/ErroOps-v1/internal/delivery"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/messages"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
)

// PeerInfo is what the conversation header shows about the peer.
type PeerInfo struct {
	UserID      string                 `json:"user_id"`
	DisplayName string                 `json:"display_name"`
	PhotoURL    string                 `json:"photo_url,omitempty"`
	Presence    *domain.PresenceRecord `json:"presence,omitempty"`
	Status      string                 `json:"status"`
}

// View renders controller output. Calls may come from any goroutine but are
// never concurrent for the same kind of update.
type View interface {
	ShowMessages(msgs []*domain.Message)
	ShowPeer(peer PeerInfo)
	ShowError(err error)
}

type Deps struct {
	Messages      *messages.Adapter
	Presence      *presence.Tracker
	Profiles      domain.ProfileRepository
	Blobs         domain.BlobStore
	StatusWorkers int
	Logger        zerolog.Logger
	Now           func() time.Time
}

type Controller struct {
	deps    Deps
	current string
	peer    string
	view    View
	logger  zerolog.Logger

	// life serializes Mount and Unmount; callbacks never take it
	life    sync.Mutex
	mounted atomic.Bool
	closed  atomic.Bool

	mu          sync.Mutex
	convID      string
	draft       string
	snapshot    []*domain.Message
	peerProfile *domain.Profile

	machine       *delivery.Machine
	ctx           context.Context
	cancel        context.CancelFunc
	stopPresence  func(context.Context)
	unsubMessages func()
	unsubPeer     func()
}

func NewController(deps Deps, currentUser, peerUser string, view View) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		deps:    deps,
		current: currentUser,
		peer:    peerUser,
		view:    view,
		logger: deps.Logger.With().
			Str("component", "chatview").
			Str("user_id", currentUser).
			Str("peer_id", peerUser).
			Logger(),
	}
}

// Mount opens the conversation. Without both user ids it renders
// ErrMissingParticipant and touches no store. Mounting twice is an error.
func (c *Controller) Mount(ctx context.Context) error {
	if c.current == "" || c.peer == "" {
		c.view.ShowError(domain.ErrMissingParticipant)
		return domain.ErrMissingParticipant
	}
	convID, err := convkey.Derive(c.current, c.peer)
	if err != nil {
		c.view.ShowError(err)
		return err
	}
	c.life.Lock()
	defer c.life.Unlock()
	if !c.mounted.CompareAndSwap(false, true) {
		return domain.ErrAlreadyMounted
	}

	c.mu.Lock()
	c.convID = convID
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.machine = delivery.NewMachine(c.deps.Messages, c.current, c.deps.StatusWorkers, c.deps.Logger)
	c.mu.Unlock()

	c.stopPresence = c.deps.Presence.Track(c.current)

	c.loadPeer(ctx)

	unsubPeer, err := c.deps.Presence.Watch(c.peer, c.onPeerPresence)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to watch peer presence")
		unsubPeer = func() {}
	}
	c.unsubPeer = unsubPeer

	unsubMessages, err := c.deps.Messages.Subscribe(convID, c.onSnapshot)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to subscribe to conversation")
		c.view.ShowError(err)
		unsubMessages = func() {}
	}
	c.unsubMessages = unsubMessages

	c.logger.Debug().Str("conversation_id", convID).Msg("mounted")
	return nil
}

func (c *Controller) loadPeer(ctx context.Context) {
	profile, err := c.deps.Profiles.GetProfile(ctx, c.peer)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to load peer profile")
	}
	c.mu.Lock()
	c.peerProfile = profile
	c.mu.Unlock()

	rec, err := c.deps.Presence.Get(ctx, c.peer)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to load peer presence")
		return
	}
	c.view.ShowPeer(c.peerInfo(rec))
}

func (c *Controller) peerInfo(rec *domain.PresenceRecord) PeerInfo {
	c.mu.Lock()
	profile := c.peerProfile
	c.mu.Unlock()

	info := PeerInfo{
		UserID:   c.peer,
		Presence: rec,
		Status:   presence.Describe(rec, c.deps.Now()),
	}
	if profile != nil {
		info.DisplayName = profile.DisplayName
		info.PhotoURL = profile.PhotoURL
	}
	return info
}

func (c *Controller) onPeerPresence(rec *domain.PresenceRecord) {
	if c.closed.Load() {
		return
	}
	c.view.ShowPeer(c.peerInfo(rec))
}

// onSnapshot renders the conversation and then acknowledges the peer's
// messages in it.
func (c *Controller) onSnapshot(msgs []*domain.Message) {
	if c.closed.Load() {
		return
	}

	c.mu.Lock()
	c.snapshot = msgs
	ctx, machine := c.ctx, c.machine
	c.mu.Unlock()

	c.view.ShowMessages(msgs)

	if res := machine.Process(ctx, msgs); res.Issued > 0 {
		c.logger.Debug().Int("issued", res.Issued).Int("failed", res.Failed).Msg("advanced message statuses")
	}
}

// Send appends a message from the current user. Text goes into the message
// text, images and documents into the media URL. A successful text send clears
// the draft; a failed send leaves it as it was.
func (c *Controller) Send(ctx context.Context, content string, typ domain.MessageType) error {
	if !c.mounted.Load() || c.closed.Load() {
		return domain.ErrNotMounted
	}

	m := &domain.Message{SenderID: c.current, Type: typ}
	if typ == domain.MessageText {
		m.Text = content
	} else {
		m.MediaURL = content
	}

	if err := c.deps.Messages.Append(ctx, c.ConversationID(), m); err != nil {
		c.logger.Error().Err(err).Str("type", string(typ)).Msg("failed to send message")
		return err
	}

	if typ == domain.MessageText {
		c.mu.Lock()
		c.draft = ""
		c.mu.Unlock()
	}
	return nil
}

func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SendDraft sends the compose buffer as a text message.
func (c *Controller) SendDraft(ctx context.Context) error {
	return c.Send(ctx, c.Draft(), domain.MessageText)
}

// Attach uploads an image or document and sends its URL.
func (c *Controller) Attach(ctx context.Context, typ domain.MessageType, filename, contentType string, r io.Reader) error {
	if typ != domain.MessageImage && typ != domain.MessageDocument {
		return domain.ErrInvalidMessageType
	}
	if !c.mounted.Load() || c.closed.Load() {
		return domain.ErrNotMounted
	}

	url, err := c.deps.Blobs.Upload(ctx, filename, contentType, r)
	if err != nil {
		c.logger.Error().Err(err).Str("filename", filename).Msg("failed to upload attachment")
		return err
	}
	return c.Send(ctx, url, typ)
}

// Unmount closes the conversation: it stops the message subscription, then
// the peer presence watch, then records the current user offline. Later
// callbacks are dropped. Calling it again does nothing.
func (c *Controller) Unmount(ctx context.Context) {
	c.life.Lock()
	defer c.life.Unlock()
	if !c.mounted.Load() || !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.unsubMessages()
	c.unsubPeer()
	c.stopPresence(ctx)

	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()

	c.logger.Debug().Msg("unmounted")
}

func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convID
}

// Messages returns the last snapshot rendered.
func (c *Controller) Messages() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Controller) CurrentUser() string { return c.current }
func (c *Controller) Peer() string        { return c.peer }
