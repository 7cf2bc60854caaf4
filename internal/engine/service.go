package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/smsvault/smsvault/internal/auth"
	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/config"
	"github.com/smsvault/smsvault/internal/contacts"
	"github.com/smsvault/smsvault/internal/imapx"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/lock"
	"github.com/smsvault/smsvault/internal/mail"
	"github.com/smsvault/smsvault/internal/prefs"
	"go.uber.org/zap"
)

// Service exposes the run entry points and enforces the per-direction run
// guard: at most one backup and one restore in flight at any time.
type Service struct {
	cfg       *config.Config
	db        *localstore.DB
	prefs     *prefs.Store
	bus       *bus.Bus
	refresher *auth.TokenRefresher
	version   string
	logger    *zap.Logger
	connect   ConnectFunc

	backupActive  atomic.Bool
	restoreActive atomic.Bool

	cancelMu sync.Mutex
	cancels  map[int]context.CancelFunc
	nextRun  int
}

// NewService wires the engine. refresher may be nil for plain auth.
func NewService(cfg *config.Config, db *localstore.DB, p *prefs.Store, b *bus.Bus, refresher *auth.TokenRefresher, version string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:       cfg,
		db:        db,
		prefs:     p,
		bus:       b,
		refresher: refresher,
		version:   version,
		logger:    logger,
		cancels:   make(map[int]context.CancelFunc),
	}
	s.connect = s.dial
	return s
}

// RunBackup executes one full backup run and returns its terminal state.
func (s *Service) RunBackup(ctx context.Context) (State, error) {
	return s.backupRun(ctx, false)
}

// RunSkip marks everything currently in the local store as already backed up
// without transferring anything.
func (s *Service) RunSkip(ctx context.Context) (State, error) {
	return s.backupRun(ctx, true)
}

func (s *Service) backupRun(ctx context.Context, skip bool) (State, error) {
	if !s.backupActive.CompareAndSwap(false, true) {
		return State{}, &RunInProgressError{Direction: "backup"}
	}
	defer s.backupActive.Store(false)

	lk, err := lock.Acquire(s.cfg.DataDir)
	if err != nil {
		return State{}, err
	}
	defer func() { _ = lk.Release() }()

	types, err := s.prefs.EnabledBackupCategories()
	if err != nil {
		return State{}, err
	}
	if len(types) == 0 {
		state := errorState(&PreconditionError{Reason: "no categories enabled for backup"})
		publish(s.bus, EventBackupState, state)
		return state, nil
	}
	allowed, err := s.allowedGroups()
	if err != nil {
		return State{}, err
	}

	runCfg := BackupConfig{
		MaxItems: s.cfg.Backup.MaxItemsPerRun,
		Types:    types,
		Allowed:  allowed,
		Skip:     skip,
	}

	ctx, done := s.register(ctx)
	defer done()

	codec, err := s.newCodec(allowed)
	if err != nil {
		return State{}, err
	}
	fetcher := NewFetcher(s.db, NewQueryBuilder(s.prefs, s.cfg), s.logger)
	task := NewBackupTask(fetcher, codec.converter, s.prefs, s.connect, s.bus, s.logger)

	state := task.Run(ctx, runCfg)
	if s.shouldRetry(state, runCfg.CurrentTry) {
		if err := s.refreshCredentials(ctx); err != nil {
			s.logger.Warn("credential refresh failed", zap.Error(err))
		} else {
			s.logger.Info("retrying backup with fresh credentials")
			state = task.Run(ctx, runCfg.Retry())
		}
	}
	if state.Phase == PhaseError {
		publish(s.bus, EventBackupState, state)
	}
	return state, nil
}

// RunRestore executes one full restore run and returns its terminal state.
func (s *Service) RunRestore(ctx context.Context) (State, error) {
	if !s.restoreActive.CompareAndSwap(false, true) {
		return State{}, &RunInProgressError{Direction: "restore"}
	}
	defer s.restoreActive.Store(false)

	lk, err := lock.Acquire(s.cfg.DataDir)
	if err != nil {
		return State{}, err
	}
	defer func() { _ = lk.Release() }()

	textEnabled, err := s.prefs.RestoreEnabled(category.Text)
	if err != nil {
		return State{}, err
	}
	callEnabled, err := s.prefs.RestoreEnabled(category.CallLog)
	if err != nil {
		return State{}, err
	}
	if !textEnabled && !callEnabled {
		state := errorState(&PreconditionError{Reason: "no categories enabled for restore"})
		publish(s.bus, EventRestoreState, state)
		return state, nil
	}

	runCfg := RestoreConfig{
		MaxRestore:  s.cfg.Restore.MaxRestore,
		Text:        textEnabled,
		CallLog:     callEnabled,
		StarredOnly: s.cfg.Restore.StarredOnly,
	}

	ctx, done := s.register(ctx)
	defer done()

	codec, err := s.newCodec(nil)
	if err != nil {
		return State{}, err
	}
	task := NewRestoreTask(s.db, codec.converter, codec.lookup, s.prefs, s.connect, s.bus, s.logger)

	state := task.Run(ctx, runCfg)
	if s.shouldRetry(state, runCfg.CurrentTry) {
		if err := s.refreshCredentials(ctx); err != nil {
			s.logger.Warn("credential refresh failed", zap.Error(err))
		} else {
			s.logger.Info("retrying restore with fresh credentials")
			state = task.Run(ctx, runCfg.Retry())
		}
	}
	if state.Phase == PhaseError {
		publish(s.bus, EventRestoreState, state)
	}
	return state, nil
}

// Cancel requests cooperative cancellation of every in-flight run.
func (s *Service) Cancel() {
	s.cancelMu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancelMu.Unlock()
}

func (s *Service) register(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelMu.Lock()
	id := s.nextRun
	s.nextRun++
	s.cancels[id] = cancel
	s.cancelMu.Unlock()
	return ctx, func() {
		s.cancelMu.Lock()
		delete(s.cancels, id)
		s.cancelMu.Unlock()
		cancel()
	}
}

// shouldRetry implements the one-shot refresh protocol: only an auth failure
// the server marked as refreshable, and only when the run has not retried
// yet.
func (s *Service) shouldRetry(state State, currentTry int) bool {
	if state.Phase != PhaseError || currentTry >= 1 || s.refresher == nil {
		return false
	}
	var authErr *imapx.AuthError
	return errors.As(state.Err, &authErr) && authErr.TokenRefreshRequired()
}

func (s *Service) refreshCredentials(ctx context.Context) error {
	s.refresher.Invalidate()
	_, err := s.refresher.AccessToken(ctx)
	return err
}

func (s *Service) dial(ctx context.Context) (*imapx.Store, error) {
	var tokens imapx.TokenProvider
	if s.refresher != nil {
		tokens = s.refresher
	}
	session, err := imapx.Connect(ctx, s.cfg.Server, s.cfg.Auth, tokens, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("store opened", zap.String("uri", imapx.MaskURI(s.cfg.StoreURI())))
	return imapx.NewStore(session, s.logger), nil
}

func (s *Service) allowedGroups() (*contacts.GroupIDs, error) {
	ids, err := s.db.GroupContactIDs(s.cfg.Backup.ContactGroup)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		return nil, nil
	}
	return contacts.NewGroupIDs(ids), nil
}

// codec bundles the per-run conversion machinery. The person cache lives and
// dies with one run.
type codec struct {
	lookup    *mail.PersonLookup
	converter *mail.Converter
}

func (s *Service) newCodec(allowed *contacts.GroupIDs) (*codec, error) {
	ref, err := s.prefs.ReferenceValue()
	if err != nil {
		return nil, err
	}
	lookup := mail.NewPersonLookup(s.db, s.logger)
	headers := mail.NewHeaderGenerator(ref, s.version)
	gen := mail.NewMessageGenerator(mail.GeneratorConfig{
		Owner:          &mail.Address{Name: s.cfg.Owner, Address: s.cfg.Owner},
		Style:          mail.ParseAddressStyle(s.cfg.Backup.AddressStyle),
		PrefixSubjects: s.cfg.Backup.SubjectPrefix,
		AllowedGroups:  allowed,
		CallTypes:      s.cfg.Backup.CallLogTypes,
		FolderFor:      s.prefs.Folder,
	}, headers, lookup, s.db, s.logger)
	converter := mail.NewConverter(gen, lookup, s.db,
		mail.ParseMarkAsRead(s.cfg.Backup.MarkAsRead), s.cfg.Restore.MarkAsRead, s.logger)
	return &codec{lookup: lookup, converter: converter}, nil
}
