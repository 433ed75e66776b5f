package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
	"github.com/allisson/btsguard/internal/metrics"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// Authorizer checks an actor against an action.
type Authorizer interface {
	Authorize(ctx context.Context, actor *authDomain.Actor, action authDomain.Action) error
}

// ConfigStore is the configuration surface the dashboard drives.
type ConfigStore interface {
	BeginEdit(ctx context.Context) (*configDomain.Draft, error)
	SetField(ctx context.Context, draft *configDomain.Draft, section, key, value string) error
	Commit(ctx context.Context, actorID string, draft *configDomain.Draft) (*configDomain.Document, error)
	Current(ctx context.Context) *configDomain.Document
	Apply(ctx context.Context, actorID string, version uint64) error
}

// CertificateStore is the credential surface the dashboard drives.
type CertificateStore interface {
	Generate(
		ctx context.Context,
		actorID string,
		subject cryptoDomain.Subject,
		validity time.Duration,
	) (*cryptoDomain.Certificate, error)
	Rotate(ctx context.Context, actorID string, certID uuid.UUID) (*cryptoDomain.Certificate, error)
	List(ctx context.Context) ([]*cryptoDomain.Certificate, error)
}

// BackupStore is the backup surface the dashboard drives.
type BackupStore interface {
	Snapshot(ctx context.Context, actorID string) (*backupDomain.Snapshot, error)
	Restore(ctx context.Context, actorID, id string) (*backupDomain.RestoreResult, error)
	List(ctx context.Context) ([]*backupDomain.Snapshot, error)
}

// ServiceController reports on and reloads the managed service.
type ServiceController interface {
	Status(ctx context.Context) (*stationDomain.Status, error)
	Reload(ctx context.Context) error
}

// MetricsFeed supplies periodic host samples.
type MetricsFeed interface {
	Latest() *monitorDomain.Snapshot
	Run(ctx context.Context, publish func(*monitorDomain.Snapshot)) error
}

// DriftSource reports out-of-band edits of the live configuration.
type DriftSource interface {
	Watch(ctx context.Context, report func(stationDomain.Drift)) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)
}

// Params wires a Controller. Service, Feed, Drift and Metrics are optional.
type Params struct {
	Actor           *authDomain.Actor
	Access          Authorizer
	Config          ConfigStore
	Certificates    CertificateStore
	Backups         BackupStore
	Service         ServiceController
	Feed            MetricsFeed
	Drift           DriftSource
	Audit           AuditRecorder
	Metrics         metrics.BusinessMetrics
	DefaultSubject  cryptoDomain.Subject
	DefaultValidity time.Duration
	ExpiryWarning   time.Duration
	Logger          *slog.Logger
}

// Controller owns one operator session. Intents are handled one at a time; the
// metrics feed and drift watcher publish concurrently.
type Controller struct {
	actor           *authDomain.Actor
	access          Authorizer
	config          ConfigStore
	certs           CertificateStore
	backups         BackupStore
	service         ServiceController
	feed            MetricsFeed
	drift           DriftSource
	audit           AuditRecorder
	metrics         metrics.BusinessMetrics
	defaultSubject  cryptoDomain.Subject
	defaultValidity time.Duration
	expiryWarning   time.Duration
	logger          *slog.Logger
	now             func() time.Time

	views    chan *ViewModel
	handleMu sync.Mutex

	mu            sync.Mutex
	draft         *configDomain.Draft
	notice        Notice
	certificates  []*cryptoDomain.Certificate
	snapshots     []*backupDomain.Snapshot
	status        *stationDomain.Status
	driftReport   *stationDomain.Drift
	metricsSample *monitorDomain.Snapshot
}

// NewController creates a controller for an authenticated actor.
func NewController(params Params) *Controller {
	m := params.Metrics
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	actor := params.Actor
	if actor == nil {
		actor = &authDomain.Actor{}
	}
	return &Controller{
		actor:           actor,
		access:          params.Access,
		config:          params.Config,
		certs:           params.Certificates,
		backups:         params.Backups,
		service:         params.Service,
		feed:            params.Feed,
		drift:           params.Drift,
		audit:           params.Audit,
		metrics:         m,
		defaultSubject:  params.DefaultSubject,
		defaultValidity: params.DefaultValidity,
		expiryWarning:   params.ExpiryWarning,
		logger:          params.Logger,
		now:             time.Now,
		views:           make(chan *ViewModel, 1),
	}
}

// Views delivers view-models. Only the newest unread one is kept.
func (c *Controller) Views() <-chan *ViewModel {
	return c.views
}

// Run handles intents until the channel closes or ctx ends. The metrics feed and
// drift watcher run alongside and stop with it.
func (c *Controller) Run(ctx context.Context, intents <-chan Intent) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if c.feed != nil {
		g.Go(func() error {
			return c.feed.Run(gctx, c.onSample)
		})
	}
	if c.drift != nil {
		g.Go(func() error {
			if err := c.drift.Watch(gctx, c.onDrift); err != nil {
				c.logger.Warn("drift watcher stopped", slog.Any("error", err))
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()

		c.reload(gctx)
		c.publish()

		for {
			select {
			case intent, ok := <-intents:
				if !ok {
					return nil
				}
				_ = c.Handle(gctx, intent)
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

// Handle authorizes and performs one intent, then publishes a new view. The
// returned error is also shown as the view's notice.
func (c *Controller) Handle(ctx context.Context, intent Intent) error {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	start := time.Now()
	text, err := c.handle(ctx, intent)

	metrics.Observe(ctx, c.metrics, "dashboard", string(intent.Kind), start, err)

	if err != nil {
		c.logger.Warn("intent failed",
			slog.String("actor", c.actor.Name),
			slog.String("intent", string(intent.Kind)),
			slog.Any("error", err),
		)
		c.setNotice(Notice{Level: LevelError, Text: Describe(err)})
	} else if text != "" {
		c.setNotice(Notice{Level: LevelInfo, Text: text})
	}

	c.publish()
	return err
}

func (c *Controller) handle(ctx context.Context, intent Intent) (string, error) {
	if err := c.access.Authorize(ctx, c.actor, intent.Kind.Action()); err != nil {
		return "", err
	}

	switch intent.Kind {
	case KindSetField:
		return c.setField(ctx, intent)
	case KindCommit:
		return c.commit(ctx)
	case KindDiscard:
		c.mu.Lock()
		c.draft = nil
		c.mu.Unlock()
		return "Draft discarded.", nil
	case KindApply:
		return c.apply(ctx, intent.Version)
	case KindGenerateCert:
		return c.generateCert(ctx, intent.Validity)
	case KindRotateCert:
		return c.rotateCert(ctx, intent.Target)
	case KindSnapshot:
		return c.snapshot(ctx)
	case KindRestore:
		return c.restore(ctx, intent.Target)
	case KindRefresh:
		c.reload(ctx)
		return "", nil
	case KindReload:
		return c.reloadService(ctx)
	default:
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown intent %q", intent.Kind)
	}
}

// setField edits a private copy of the draft and swaps it in, so views built by
// the feed and drift goroutines never observe a draft being mutated.
func (c *Controller) setField(ctx context.Context, intent Intent) (string, error) {
	c.mu.Lock()
	var draft *configDomain.Draft
	if c.draft != nil {
		draft = c.draft.Clone()
	}
	c.mu.Unlock()

	if draft == nil {
		var err error
		if draft, err = c.config.BeginEdit(ctx); err != nil {
			return "", err
		}
	}
	if err := c.config.SetField(ctx, draft, intent.Section, intent.Key, intent.Value); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.draft = draft
	c.mu.Unlock()
	return fmt.Sprintf("%s set to %s (not committed).", configDomain.FieldName(intent.Section, intent.Key), intent.Value), nil
}

func (c *Controller) commit(ctx context.Context) (string, error) {
	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()

	if draft == nil {
		return "", configDomain.ErrNoChanges
	}
	doc, err := c.config.Commit(ctx, c.actor.ID, draft)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.draft = nil
	c.mu.Unlock()
	return fmt.Sprintf("Committed v%d.", doc.Version), nil
}

func (c *Controller) apply(ctx context.Context, version uint64) (string, error) {
	err := c.config.Apply(ctx, c.actor.ID, version)
	c.refreshStatus(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.driftReport = nil
	c.mu.Unlock()
	return fmt.Sprintf("Applied v%d.", c.config.Current(ctx).Version), nil
}

func (c *Controller) generateCert(ctx context.Context, validity time.Duration) (string, error) {
	if validity == 0 {
		validity = c.defaultValidity
	}
	cert, err := c.certs.Generate(ctx, c.actor.ID, c.defaultSubject, validity)
	if err != nil {
		return "", err
	}
	c.refreshCertificates(ctx)
	return fmt.Sprintf("Generated certificate %s for %s.", cert.ID, cert.Subject.CommonName), nil
}

func (c *Controller) rotateCert(ctx context.Context, target string) (string, error) {
	id, err := uuid.Parse(target)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "certificate id %q", target)
	}
	cert, err := c.certs.Rotate(ctx, c.actor.ID, id)
	if err != nil {
		return "", err
	}
	c.refreshCertificates(ctx)
	return fmt.Sprintf("Rotated to certificate %s.", cert.ID), nil
}

func (c *Controller) snapshot(ctx context.Context) (string, error) {
	snapshot, err := c.backups.Snapshot(ctx, c.actor.ID)
	if err != nil {
		return "", err
	}
	c.refreshBackups(ctx)
	return fmt.Sprintf("Snapshot %s saved (config v%d).", snapshot.ID, snapshot.ConfigVersion), nil
}

func (c *Controller) restore(ctx context.Context, id string) (string, error) {
	result, err := c.backups.Restore(ctx, c.actor.ID, id)
	if err != nil {
		return "", err
	}

	// The draft was based on a version that is no longer current.
	c.mu.Lock()
	c.draft = nil
	c.mu.Unlock()

	c.refreshCertificates(ctx)
	c.refreshBackups(ctx)
	return fmt.Sprintf(
		"Restored %s as v%d. Previous state saved as %s.",
		result.Restored.ID,
		result.Document.Version,
		result.PreRestore.ID,
	), nil
}

func (c *Controller) reloadService(ctx context.Context) (string, error) {
	if c.service == nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "no managed service configured")
	}

	reloadErr := c.service.Reload(ctx)
	result := auditDomain.Succeeded()
	if reloadErr != nil {
		result = auditDomain.Failed(reloadErr.Error())
	}
	entry := &auditDomain.Entry{
		ActorID: c.actor.ID,
		Action:  auditDomain.ActionServiceReload,
		Target:  "service",
		Result:  result,
	}
	if _, err := c.audit.Record(ctx, entry); err != nil {
		return "", apperrors.Join(reloadErr, err)
	}

	c.refreshStatus(ctx)
	if reloadErr != nil {
		return "", reloadErr
	}
	return "Service reloaded.", nil
}

// reload refreshes every cached list and the service status.
func (c *Controller) reload(ctx context.Context) {
	c.refreshCertificates(ctx)
	c.refreshBackups(ctx)
	c.refreshStatus(ctx)
	if c.feed != nil {
		c.onSampleLocked(c.feed.Latest())
	}
}

func (c *Controller) refreshCertificates(ctx context.Context) {
	certs, err := c.certs.List(ctx)
	if err != nil {
		c.logger.Warn("list certificates", slog.Any("error", err))
		return
	}
	c.mu.Lock()
	c.certificates = certs
	c.mu.Unlock()
}

func (c *Controller) refreshBackups(ctx context.Context) {
	snapshots, err := c.backups.List(ctx)
	if err != nil {
		c.logger.Warn("list backups", slog.Any("error", err))
		return
	}
	c.mu.Lock()
	c.snapshots = snapshots
	c.mu.Unlock()
}

func (c *Controller) refreshStatus(ctx context.Context) {
	if c.service == nil {
		return
	}
	status, err := c.service.Status(ctx)
	if err != nil {
		status = &stationDomain.Status{Running: false, Detail: err.Error(), CheckedAt: c.now().UTC()}
	}
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *Controller) setNotice(notice Notice) {
	c.mu.Lock()
	c.notice = notice
	c.mu.Unlock()
}

func (c *Controller) onSample(sample *monitorDomain.Snapshot) {
	c.onSampleLocked(sample)
	c.publish()
}

func (c *Controller) onSampleLocked(sample *monitorDomain.Snapshot) {
	if sample == nil {
		return
	}
	c.mu.Lock()
	c.metricsSample = sample.Clone()
	c.mu.Unlock()
}

func (c *Controller) onDrift(drift stationDomain.Drift) {
	c.mu.Lock()
	c.driftReport = &drift
	c.notice = Notice{
		Level: LevelWarning,
		Text:  fmt.Sprintf("%s was %s outside btsguard. Apply to restore the managed version.", drift.Path, drift.Op),
	}
	c.mu.Unlock()
	c.publish()
}

// publish builds a view and hands it over, replacing any unread one. Holding mu
// keeps concurrent publishers from delivering out of order.
func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.buildView()
	for {
		select {
		case c.views <- view:
			return
		default:
		}
		select {
		case <-c.views:
		default:
		}
	}
}

func (c *Controller) buildView() *ViewModel {
	now := c.now()
	view := &ViewModel{
		Operator:  c.actor.Name,
		Notice:    c.notice,
		UpdatedAt: now.UTC(),
	}
	for _, p := range c.actor.Permissions {
		view.Permissions = append(view.Permissions, string(p))
	}

	current := c.config.Current(context.Background())
	pending := map[string]configDomain.Change{}
	if c.draft != nil {
		draftView := &DraftView{BaseVersion: c.draft.BaseVersion}
		for _, change := range c.draft.Changes {
			pending[change.Field()] = change
			draftView.Changes = append(draftView.Changes,
				fmt.Sprintf("%s: %s -> %s", change.Field(), change.Old.String(), change.New.String()))
		}
		view.Draft = draftView
	}
	if current != nil {
		view.Config = ConfigView{
			Version: current.Version,
			Digest:  current.Digest,
			Status:  current.Status,
			Reason:  current.StatusReason,
		}
		for _, section := range current.Content {
			sectionView := SectionView{Name: section.Name}
			for _, field := range section.Fields {
				fieldView := FieldView{Key: field.Key, Value: field.Value.String()}
				if change, ok := pending[configDomain.FieldName(section.Name, field.Key)]; ok {
					fieldView.Pending = change.New.String()
					fieldView.Changed = true
				}
				sectionView.Fields = append(sectionView.Fields, fieldView)
			}
			view.Config.Sections = append(view.Config.Sections, sectionView)
		}
	}

	for _, cert := range c.certificates {
		view.Certificates = append(view.Certificates, CertificateView{
			ID:          cert.ID.String(),
			CommonName:  cert.Subject.CommonName,
			Status:      cert.Status,
			NotAfter:    cert.NotAfter,
			Fingerprint: cert.Fingerprint,
			Expiring:    cert.Status == cryptoDomain.StatusActive && cert.NotAfter.Sub(now) <= c.expiryWarning,
			Usable:      cert.Usable(now),
		})
	}

	for _, snapshot := range c.snapshots {
		view.Backups = append(view.Backups, BackupView{
			ID:            snapshot.ID.String(),
			CreatedAt:     snapshot.CreatedAt,
			CreatedBy:     snapshot.CreatedBy,
			ConfigVersion: snapshot.ConfigVersion,
			Reason:        snapshot.Reason,
		})
	}
	sort.SliceStable(view.Backups, func(i, j int) bool {
		return view.Backups[i].CreatedAt.After(view.Backups[j].CreatedAt)
	})

	if c.status != nil {
		status := *c.status
		view.Service = &status
	}
	if c.driftReport != nil {
		drift := *c.driftReport
		view.Drift = &drift
	}
	if c.metricsSample != nil {
		view.Metrics = c.metricsSample.Clone()
	}
	return view
}
