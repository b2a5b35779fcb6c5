// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package facade wraps the session, event store, domain store, and
// ingestion pipeline into a synchronous, call-from-anywhere lifecycle
// controller. It serializes init -> login -> ... -> logout -> init-again
// transitions so no derived state survives across identities, owning
// every long-lived subsystem and tearing them down in a fixed order on
// shutdown the way the teacher's pkg/scheduler.Scheduler owns its cron
// engine, store, and hot-reload watcher.
package facade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/bunker"
	"github.com/tenex-chat/tui-sub004/internal/deltabus"
	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/eventstore"
	"github.com/tenex-chat/tui-sub004/internal/housekeeping"
	"github.com/tenex-chat/tui-sub004/internal/ingest"
	"github.com/tenex-chat/tui-sub004/internal/prefs"
	"github.com/tenex-chat/tui-sub004/internal/relay"
	"github.com/tenex-chat/tui-sub004/internal/search"
	"github.com/tenex-chat/tui-sub004/internal/secretstore"
	"github.com/tenex-chat/tui-sub004/internal/session"
	"github.com/tenex-chat/tui-sub004/internal/statecache"
	"github.com/tenex-chat/tui-sub004/internal/streamsocket"
	"github.com/tenex-chat/tui-sub004/internal/tenexconfig"
	"github.com/tenex-chat/tui-sub004/internal/tenexerr"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
	"github.com/tenex-chat/tui-sub004/internal/trust"
)

const (
	staleStatusSweepInterval = "@every 30s"
	stateCacheSnapshotSpec   = "@every 5m"
	housekeepingStopTimeout  = 5 * time.Second
)

// State is a node in the façade's lifecycle state machine.
type State int

const (
	Uninitialized State = iota
	Initialized
	LoggedIn
)

// SecretAccountSignerKey is the secretstore account name the signer
// private key is persisted under on successful login.
const SecretAccountSignerKey = "signer-key"

// Facade is the synchronous entrypoint every UI frontend drives.
// It holds one instance of each subsystem at a time; Logout tears
// all of them down and immediately rebuilds a pristine Initialized
// instance.
type Facade struct {
	cfg    tenexconfig.Config
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	lastRefresh time.Time

	store       *eventstore.Store
	domainStore *domain.Store
	trustEngine *trust.Engine
	pipeline    *ingest.Pipeline
	bus         *deltabus.Bus
	prefsStore  *prefs.Store
	secrets     *secretstore.Store
	refreshSub  *eventstore.Subscription
	stream      *streamsocket.Client
	sess        *session.Session
	newClient   func() relay.Client
	housekeeper *housekeeping.Runner
	prefsWatch  *prefs.Watcher

	identity session.Identity
}

// Option customizes a Facade built by New. Tests use WithClientFactory
// to substitute relay.Fake for the real relay pool.
type Option func(*Facade)

// WithClientFactory overrides how the façade builds relay.Client
// instances for the session and its bunker subsystem. Defaults to
// relay.NewPoolClient.
func WithClientFactory(factory func() relay.Client) Option {
	return func(f *Facade) { f.newClient = factory }
}

// New builds an Uninitialized façade over cfg. Call Init before
// anything else.
func New(cfg tenexconfig.Config, opts ...Option) *Facade {
	f := &Facade{
		cfg:       cfg,
		logger:    tenexlog.Logger(),
		secrets:   secretstore.New(),
		newClient: func() relay.Client { return relay.NewPoolClient() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State reports the current lifecycle state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Init opens the data directory, event store, domain store, and
// session worker, and loads preferences. It is idempotent: calling it
// while already Initialized or LoggedIn is a no-op.
func (f *Facade) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Uninitialized {
		return nil
	}
	return f.initLocked()
}

func (f *Facade) initLocked() error {
	if err := os.MkdirAll(f.cfg.DataDir, 0o700); err != nil {
		return tenexerr.Wrap("create data dir", err)
	}

	store, err := eventstore.Open(f.cfg.EventStoreDir())
	if err != nil {
		return tenexerr.Wrap("open event store", err)
	}

	prefsStore, err := prefs.Open(f.cfg.PreferencesPath())
	if err != nil {
		store.Close()
		return tenexerr.Wrap("open preferences", err)
	}

	domainStore := domain.NewStore()
	trustEngine := trust.NewEngine()
	doc := prefsStore.Snapshot()
	trustEngine.SetTrustedBackends(doc.ApprovedBackends, doc.BlockedBackends)

	if cached, err := statecache.Load(f.cfg.StateCachePath()); err != nil {
		f.logger.Warn("facade: state cache load failed, falling back to full replay", zap.Error(err))
	} else {
		for _, ev := range cached {
			store.Ingest(ev)
		}
	}

	pipeline := ingest.New(domainStore, trustEngine)
	bus := deltabus.New(pipeline)

	sess := session.New(f.newClient(), f.newClient, store, bus)
	stream := streamsocket.Start(streamsocket.SocketPath(), bus.FeedChunk)
	refreshSub := store.Subscribe(eventstore.Filter{})

	prefsWatch, err := prefsStore.Watch(func(d prefs.Document) {
		trustEngine.SetTrustedBackends(d.ApprovedBackends, d.BlockedBackends)
	})
	if err != nil {
		f.logger.Warn("facade: preferences hot-reload disabled", zap.Error(err))
	}

	housekeeper := housekeeping.New(f.logger)
	if err := housekeeper.AddFunc(staleStatusSweepInterval, func() {
		f.sweepStaleProjectStatuses(domainStore, bus)
	}); err != nil {
		f.logger.Warn("facade: failed to register stale-status sweep", zap.Error(err))
	}
	if err := housekeeper.AddFunc(stateCacheSnapshotSpec, func() {
		if err := statecache.Save(f.cfg.StateCachePath(), store.All()); err != nil {
			f.logger.Warn("facade: state cache snapshot failed", zap.Error(err))
		}
	}); err != nil {
		f.logger.Warn("facade: failed to register state-cache snapshot job", zap.Error(err))
	}
	// Day keys are UTC, so the today counter rolls over at UTC midnight.
	if err := housekeeper.AddFunc("CRON_TZ=UTC 0 0 * * *", func() {
		domainStore.Stats().ResetTodayRuntime()
	}); err != nil {
		f.logger.Warn("facade: failed to register today-runtime reset job", zap.Error(err))
	}
	housekeeper.Start()

	f.store = store
	f.prefsStore = prefsStore
	f.prefsWatch = prefsWatch
	f.domainStore = domainStore
	f.trustEngine = trustEngine
	f.pipeline = pipeline
	f.bus = bus
	f.sess = sess
	f.stream = stream
	f.refreshSub = refreshSub
	f.housekeeper = housekeeper
	f.state = Initialized
	f.logger.Info("facade: initialized", zap.String("data_dir", f.cfg.DataDir))
	return nil
}

// sweepStaleProjectStatuses evicts any project's online status that
// domain.Store.IsProjectOnline no longer counts as online (its fixed
// five-minute window; cfg.ProjectStatusStaleAfter is not consulted),
// emitting the resulting
// ProjectStatusChanged delta to the callback the way an ordinary
// ingested event would.
func (f *Facade) sweepStaleProjectStatuses(domainStore *domain.Store, bus *deltabus.Bus) {
	now := time.Now().Unix()
	for _, p := range domainStore.ListProjects() {
		if domainStore.IsProjectOnline(p.Address, now) {
			continue
		}
		if delta, changed := domainStore.EvictProjectStatus(p.Address); changed {
			bus.FeedDelta(delta)
		}
	}
}

// Login parses nsec, connects the session to the configured relays,
// and transitions Initialized -> LoggedIn. A failure leaves the state
// unchanged and returns an error.
func (f *Facade) Login(nsec string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Uninitialized {
		return tenexerr.ErrCoreNotInitialized
	}
	if f.state == LoggedIn {
		return nil
	}

	identity, err := parseNsec(nsec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ForceReconnectTimeout)
	defer cancel()
	if err := f.sess.Connect(ctx, identity, f.cfg.RelayURLs); err != nil {
		return tenexerr.Wrap("connect session", err)
	}

	if err := f.secrets.Set(SecretAccountSignerKey, identity.PrivateKeyHex); err != nil {
		f.logger.Warn("facade: failed to persist signer key", zap.Error(err))
	}

	f.identity = identity
	f.state = LoggedIn
	f.logger.Info("facade: logged in", zap.String("pubkey", identity.PublicKeyHex))
	return nil
}

func parseNsec(nsec string) (session.Identity, error) {
	prefix, value, err := nip19.Decode(nsec)
	if err != nil || prefix != "nsec" {
		return session.Identity{}, tenexerr.ErrInvalidNsec
	}
	sk, ok := value.(string)
	if !ok || sk == "" {
		return session.Identity{}, tenexerr.ErrInvalidNsec
	}
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return session.Identity{}, tenexerr.ErrInvalidNsec
	}
	return session.Identity{PrivateKeyHex: sk, PublicKeyHex: pk}, nil
}

// Logout disconnects the session, wipes on-disk cache state, and
// immediately re-initializes a pristine façade. Re-login afterward
// starts from an empty event store and domain store.
func (f *Facade) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}

	done := make(chan error, 1)
	if err := f.sess.Disconnect(done); err != nil {
		return &tenexerr.LogoutFailed{Message: err.Error()}
	}
	select {
	case <-done:
	case <-time.After(f.cfg.DisconnectTimeout):
		f.logger.Warn("facade: disconnect timed out, forcing shutdown")
		f.sess.Shutdown()
	}

	f.sess.Shutdown()
	f.bus.ClearCallback()
	f.stream.Stop()
	f.refreshSub.Close()
	f.housekeeper.Stop(housekeepingStopTimeout)
	if f.prefsWatch != nil {
		if err := f.prefsWatch.Close(); err != nil {
			f.logger.Warn("facade: error closing preferences watcher during logout", zap.Error(err))
		}
	}
	if err := f.store.Close(); err != nil {
		f.logger.Warn("facade: error closing event store during logout", zap.Error(err))
	}

	if err := f.wipeCacheFiles(); err != nil {
		return &tenexerr.LogoutFailed{Message: err.Error()}
	}

	f.state = Uninitialized
	f.identity = session.Identity{}
	f.lastRefresh = time.Time{}
	f.logger.Info("facade: logged out")

	return f.initLocked()
}

func (f *Facade) wipeCacheFiles() error {
	targets := []string{
		filepath.Join(f.cfg.DataDir, "data.mdb"),
		filepath.Join(f.cfg.DataDir, "lock.mdb"),
		f.cfg.StateCachePath(),
		f.cfg.StateCachePath() + ".tmp",
	}
	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// Refresh drains the store's subscription stream and performs a
// bounded adaptive poll, giving freshly admitted events time to
// settle before UI callers re-query. Calls within RefreshThrottle of
// the previous call short-circuit and return success immediately.
func (f *Facade) Refresh() error {
	f.mu.Lock()
	if f.state == Uninitialized {
		f.mu.Unlock()
		return tenexerr.ErrCoreNotInitialized
	}
	if time.Since(f.lastRefresh) < f.cfg.RefreshThrottle {
		f.mu.Unlock()
		return nil
	}
	sub := f.refreshSub
	f.mu.Unlock()

	pollCap := time.NewTimer(f.cfg.RefreshPollCap)
	defer pollCap.Stop()
	quiet := time.NewTimer(f.cfg.RefreshQuietWindow)
	defer quiet.Stop()

	for {
		select {
		case <-sub.Batches:
			if !quiet.Stop() {
				<-quiet.C
			}
			quiet.Reset(f.cfg.RefreshQuietWindow)
		case <-quiet.C:
			f.mu.Lock()
			f.lastRefresh = time.Now()
			f.mu.Unlock()
			return nil
		case <-pollCap.C:
			f.mu.Lock()
			f.lastRefresh = time.Now()
			f.mu.Unlock()
			return nil
		}
	}
}

// SetCallback registers the sole delta callback, invoked on the bus's
// listener goroutine as events are ingested or chunks arrive.
func (f *Facade) SetCallback(cb deltabus.Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bus != nil {
		f.bus.SetCallback(cb)
	}
}

// Session exposes the underlying session for command dispatch
// (publish, bunker, project mutations). Returns nil before Init.
func (f *Facade) Session() *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess
}

// ListProjects returns every known project, in no particular order
// (per domain.Store.ListProjects).
func (f *Facade) ListProjects() []domain.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return nil
	}
	return f.domainStore.ListProjects()
}

// ListThreads returns every thread for a project address.
func (f *Facade) ListThreads(projectAddress string) []domain.Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return nil
	}
	return f.domainStore.ListThreads(projectAddress)
}

// ListMessages returns every message for a thread id.
func (f *Facade) ListMessages(threadID string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return nil
	}
	return f.domainStore.ListMessages(threadID)
}

// TrustApprove approves a backend pubkey, promoting any pending status
// events from it into the domain store through the ingestion pipeline
// (the same path an admitted event takes), feeds the resulting deltas to
// the registered callback, and persists the change to preferences.json.
// Returns the number of pending approvals released.
func (f *Facade) TrustApprove(pubkey string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trustEngine == nil {
		return 0, tenexerr.ErrCoreNotInitialized
	}
	before := len(f.trustEngine.Snapshot().Pending)
	deltas := f.pipeline.ApproveBackend(pubkey, time.Now().Unix())
	for _, d := range deltas {
		f.bus.FeedDelta(d)
	}
	released := before - len(f.trustEngine.Snapshot().Pending)

	snap := f.trustEngine.Snapshot()
	if err := f.prefsStore.SetTrust(snap.Approved, snap.Blocked); err != nil {
		return released, tenexerr.Wrap("persist trust approve", err)
	}
	return released, nil
}

// TrustBlock blocks a backend pubkey, evicting any online project status
// it previously contributed through the ingestion pipeline, feeds the
// resulting deltas to the registered callback, and persists the change.
func (f *Facade) TrustBlock(pubkey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trustEngine == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	addrs := f.domainStore.ProjectAddressesByCreator(pubkey)
	deltas := f.pipeline.BlockBackend(pubkey, addrs)
	for _, d := range deltas {
		f.bus.FeedDelta(d)
	}
	snap := f.trustEngine.Snapshot()
	return f.prefsStore.SetTrust(snap.Approved, snap.Blocked)
}

// TrustList returns the current approved/blocked/pending sets.
func (f *Facade) TrustList() (trust.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trustEngine == nil {
		return trust.Snapshot{}, tenexerr.ErrCoreNotInitialized
	}
	return f.trustEngine.Snapshot(), nil
}

// BunkerStart starts the remote-signing service and returns its
// connection URI.
func (f *Facade) BunkerStart() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.StartBunker()
}

// BunkerStop stops the remote-signing service if running.
func (f *Facade) BunkerStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	return f.sess.StopBunker()
}

// BunkerAudit returns the bunker's audit log, or an empty slice if no
// bunker is running.
func (f *Facade) BunkerAudit() ([]bunker.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return nil, tenexerr.ErrNotLoggedIn
	}
	return f.sess.BunkerAuditLog()
}

// RespondToBunkerRequest resolves an outstanding sign_event request the
// bunker surfaced over Session.SignRequests.
func (f *Facade) RespondToBunkerRequest(requestID string, approved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	return f.sess.BunkerResponse(requestID, approved)
}

// AddBunkerAutoApproveRule registers a rule that auto-approves matching
// sign requests without a UI round trip.
func (f *Facade) AddBunkerAutoApproveRule(rule bunker.AutoApproveRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	return f.sess.AddBunkerAutoApproveRule(rule)
}

// RemoveBunkerAutoApproveRule removes a previously registered rule.
func (f *Facade) RemoveBunkerAutoApproveRule(pubkey string, kind int, anyKind bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	return f.sess.RemoveBunkerAutoApproveRule(pubkey, kind, anyKind)
}

// GetBunkerAutoApproveRules returns the currently registered rules.
func (f *Facade) GetBunkerAutoApproveRules() ([]bunker.AutoApproveRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return nil, tenexerr.ErrNotLoggedIn
	}
	return f.sess.BunkerAutoApproveRules()
}

// ForceReconnect tears down and re-establishes the session's relay pool
// and standing subscriptions, waiting up to cfg.ForceReconnectTimeout
// for the worker to report success.
func (f *Facade) ForceReconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	done := make(chan error, 1)
	if err := f.sess.ForceReconnect(done); err != nil {
		return tenexerr.Wrap("force reconnect", err)
	}
	select {
	case err := <-done:
		return err
	case <-time.After(f.cfg.ForceReconnectTimeout):
		return fmt.Errorf("facade: force reconnect timed out")
	}
}

// ClearEventCallback unregisters the delta callback, if any.
func (f *Facade) ClearEventCallback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bus != nil {
		f.bus.ClearCallback()
	}
}

// GetConversationRuntimeMs returns a conversation's own runtime plus
// that of every descendant linked through the hierarchy graph.
func (f *Facade) GetConversationRuntimeMs(conversationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return 0, tenexerr.ErrCoreNotInitialized
	}
	return f.domainStore.ConversationRuntimeMs(conversationID), nil
}

// GetDescendantConversationIDs returns every conversation transitively
// linked under id in the runtime hierarchy graph.
func (f *Facade) GetDescendantConversationIDs(id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return nil, tenexerr.ErrCoreNotInitialized
	}
	return f.domainStore.DescendantConversationIDs(id), nil
}

// GetProfileName returns the display name of a known pubkey's kind-0
// profile.
func (f *Facade) GetProfileName(pubkey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return "", tenexerr.ErrCoreNotInitialized
	}
	p, _ := f.domainStore.ProfileByPubkey(pubkey)
	return p.Name, nil
}

// GetProfilePicture returns the picture URL of a known pubkey's kind-0
// profile.
func (f *Facade) GetProfilePicture(pubkey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return "", tenexerr.ErrCoreNotInitialized
	}
	p, _ := f.domainStore.ProfileByPubkey(pubkey)
	return p.Picture, nil
}

// Search finds threads whose title or content match every term in
// query ('+'-separated, ANDed; see search.ParseTerms), across every known project,
// preserving each project's most-recently-active-first order. limit
// caps the number of results returned; 0 means unlimited.
func (f *Facade) Search(query string, limit int) ([]domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return nil, tenexerr.ErrCoreNotInitialized
	}
	terms := search.ParseTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	var out []domain.Thread
	for _, p := range f.domainStore.ListProjects() {
		for _, t := range f.domainStore.ListThreads(p.Address) {
			if !search.ContainsAllTerms(t.Title, terms) && !search.ContainsAllTerms(t.Content, terms) {
				continue
			}
			out = append(out, t)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// ApproveAllPendingBackends approves every backend pubkey currently
// holding a pending status approval, routing each through the same
// pipeline path as TrustApprove and persisting the result once.
func (f *Facade) ApproveAllPendingBackends() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trustEngine == nil {
		return 0, tenexerr.ErrCoreNotInitialized
	}
	seen := make(map[string]bool)
	var pubkeys []string
	for _, p := range f.trustEngine.Snapshot().Pending {
		if !seen[p.BackendPubkey] {
			seen[p.BackendPubkey] = true
			pubkeys = append(pubkeys, p.BackendPubkey)
		}
	}

	now := time.Now().Unix()
	var released int
	for _, pk := range pubkeys {
		before := len(f.trustEngine.Snapshot().Pending)
		deltas := f.pipeline.ApproveBackend(pk, now)
		for _, d := range deltas {
			f.bus.FeedDelta(d)
		}
		released += before - len(f.trustEngine.Snapshot().Pending)
	}

	snap := f.trustEngine.Snapshot()
	if err := f.prefsStore.SetTrust(snap.Approved, snap.Blocked); err != nil {
		return released, tenexerr.Wrap("persist approve all pending", err)
	}
	return released, nil
}

// SetTrustedBackends replaces the approved/blocked sets wholesale and
// persists the change.
func (f *Facade) SetTrustedBackends(approved, blocked []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trustEngine == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	f.trustEngine.SetTrustedBackends(approved, blocked)
	return f.prefsStore.SetTrust(approved, blocked)
}

// SetVisibleProjects replaces the sidebar's visible-project set.
func (f *Facade) SetVisibleProjects(addrs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.SetVisibleProjects(addrs)
}

// ArchiveThread hides a thread from the default thread list.
func (f *Facade) ArchiveThread(threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.ArchiveThread(threadID)
}

// UnarchiveThread restores a previously archived thread.
func (f *Facade) UnarchiveThread(threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.UnarchiveThread(threadID)
}

// SetCollapsedThreads replaces the set of threads collapsed in the UI.
func (f *Facade) SetCollapsedThreads(ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.SetCollapsedThreads(ids)
}

// SetHideScheduled toggles whether scheduled threads are hidden.
func (f *Facade) SetHideScheduled(hide bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.SetHideScheduled(hide)
}

// SetAudioSettings replaces the non-secret AI audio preferences.
func (f *Facade) SetAudioSettings(a prefs.AudioSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsStore == nil {
		return tenexerr.ErrCoreNotInitialized
	}
	return f.prefsStore.SetAudioSettings(a)
}

// StatsSnapshot bundles the rolling aggregate counters behind one call,
// the same counters internal/domain.Statistics has tracked since
// ingestion started populating it.
type StatsSnapshot struct {
	CostByProject  map[string]float64
	TokensByHour   map[int64]int64
	MessagesByDay  map[string]int64
	RuntimeByDay   map[string]int64
	TodayRuntimeMs int64
}

// GetStatsSnapshot returns the current cost/token/message/runtime
// counters.
func (f *Facade) GetStatsSnapshot() (StatsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil {
		return StatsSnapshot{}, tenexerr.ErrCoreNotInitialized
	}
	stats := f.domainStore.Stats()
	return StatsSnapshot{
		CostByProject:  stats.CostWindow(),
		TokensByHour:   stats.TokensByHour(),
		MessagesByDay:  stats.MessagesByDay(),
		RuntimeByDay:   stats.RuntimeByDay(),
		TodayRuntimeMs: stats.TodayRuntimeMs(),
	}, nil
}

// DiagnosticsSnapshot bundles low-level counters for a support/debug
// view: on-disk location, durable event count, and in-memory
// projection sizes.
type DiagnosticsSnapshot struct {
	DataDir          string
	EventCount       int
	ProjectCount     int
	ThreadCount      int
	MessageCount     int
	PendingApprovals int
}

// GetDiagnosticsSnapshot returns the current diagnostics counters.
func (f *Facade) GetDiagnosticsSnapshot() (DiagnosticsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domainStore == nil || f.store == nil {
		return DiagnosticsSnapshot{}, tenexerr.ErrCoreNotInitialized
	}
	projects, threads, messages := f.domainStore.Sizes()
	return DiagnosticsSnapshot{
		DataDir:          f.cfg.DataDir,
		EventCount:       f.store.Count(),
		ProjectCount:     projects,
		ThreadCount:      threads,
		MessageCount:     messages,
		PendingApprovals: len(f.trustEngine.Snapshot().Pending),
	}, nil
}

// PublishProfile signs and publishes the user's kind-0 metadata.
func (f *Facade) PublishProfile(displayName, pictureURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.PublishProfile(displayName, pictureURL)
}

// SendThread publishes a new kind-1 thread root.
func (f *Facade) SendThread(p session.ThreadParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.PublishThread(p)
}

// SendMessage publishes a kind-1 reply.
func (f *Facade) SendMessage(p session.MessageParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.PublishMessage(p)
}

// AnswerAsk publishes a reply tagged as the answer to a pending ask,
// addressed back to the asking agent via p.AskAnswerAuthor.
func (f *Facade) AnswerAsk(p session.MessageParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.PublishMessage(p)
}

// BootProject publishes a kind-24000 boot request.
func (f *Facade) BootProject(projectAddress, ownerPubkey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return tenexerr.ErrNotLoggedIn
	}
	return f.sess.BootProject(projectAddress, ownerPubkey)
}

// CreateProject publishes a new kind-31933 project.
func (f *Facade) CreateProject(p session.ProjectParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.SaveProject(p)
}

// UpdateProject republishes a kind-31933 project under the same "d"
// tag.
func (f *Facade) UpdateProject(p session.ProjectParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.UpdateProject(p)
}

// DeleteProject republishes the project tagged as deleted.
func (f *Facade) DeleteProject(p session.ProjectParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != LoggedIn {
		return "", tenexerr.ErrNotLoggedIn
	}
	return f.sess.DeleteProject(p)
}
