// Package account manages account lifecycle and linked credentials: SSH
// public keys and X.509 certificates. Every credential change emits a
// security audit event.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/check"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

type Service struct {
	accounts core.AccountRepository
	events   audit.Sink

	sshKeyOK check.Check[core.SSHKey]
	certOK   check.Check[core.X509Certificate]
}

func NewService(accounts core.AccountRepository, events audit.Sink) *Service {
	return &Service{
		accounts: accounts,
		events:   events,
		sshKeyOK: newSSHKeyChecks(),
		certOK:   newCertChecks(),
	}
}

func newSSHKeyChecks() check.Check[core.SSHKey] {
	fingerprint := check.Func[core.SSHKey](func(k core.SSHKey) check.Result {
		return check.SSHFingerprint().Validate(k.Fingerprint)
	})
	value := check.Func[core.SSHKey](func(k core.SSHKey) check.Result {
		return check.NonEmpty("invalid_ssh_key", "SSH key value must not be empty").Validate(k.Value)
	})
	return check.And[core.SSHKey]("invalid SSH key", fingerprint, value)
}

func newCertChecks() check.Check[core.X509Certificate] {
	subject := check.Func[core.X509Certificate](func(c core.X509Certificate) check.Result {
		return check.NonEmpty("invalid_certificate", "certificate subject must not be empty").Validate(c.SubjectDN)
	})
	pem := check.Func[core.X509Certificate](func(c core.X509Certificate) check.Result {
		return check.NonEmpty("invalid_certificate", "certificate PEM must not be empty").Validate(c.PEM)
	})
	return check.And[core.X509Certificate]("invalid certificate", subject, pem)
}

// Create registers an account. Username conflicts surface core.ErrConflict.
func (s *Service) Create(ctx context.Context, username, email string) (core.Account, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account"),
		logger.Op("Create"),
		logger.Username(username),
	)

	if r := check.NonEmpty("invalid_username", "username must not be empty").Validate(username); !r.OK() {
		return core.Account{}, &ValidationError{Result: r}
	}

	a := core.Account{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, &a); err != nil {
		return core.Account{}, err
	}

	log.Info("account created", logger.AccountID(a.ID))
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryAccount,
		AccountRef: a.ID,
		Message:    "account created",
	})
	return a, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (*core.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// LinkSSHKey attaches an SSH public key to an account.
func (s *Service) LinkSSHKey(ctx context.Context, accountID string, key core.SSHKey) error {
	if r := s.sshKeyOK.Validate(key); !r.OK() {
		return &ValidationError{Result: r}
	}
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		return err
	}

	key.AccountID = accountID
	key.CreatedAt = time.Now().UTC()
	if err := s.accounts.AddSSHKey(ctx, &key); err != nil {
		return err
	}

	logger.From(ctx).Info("ssh key linked",
		logger.Component("account"),
		logger.AccountID(accountID),
		logger.String("fingerprint", key.Fingerprint),
	)
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategorySecurity,
		AccountRef: accountID,
		Message:    "ssh key linked",
		Payload:    audit.SSHKeyChange{Fingerprint: key.Fingerprint, Action: "added"},
	})
	return nil
}

// UnlinkSSHKey removes an SSH key by fingerprint. Unknown fingerprints
// surface core.ErrNotFound.
func (s *Service) UnlinkSSHKey(ctx context.Context, accountID, fingerprint string) error {
	if err := s.accounts.RemoveSSHKey(ctx, accountID, fingerprint); err != nil {
		return err
	}
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategorySecurity,
		AccountRef: accountID,
		Message:    "ssh key unlinked",
		Payload:    audit.SSHKeyChange{Fingerprint: fingerprint, Action: "removed"},
	})
	return nil
}

// SSHKeys lists the SSH keys linked to an account.
func (s *Service) SSHKeys(ctx context.Context, accountID string) ([]core.SSHKey, error) {
	return s.accounts.SSHKeysOf(ctx, accountID)
}

// LinkCertificate attaches an X.509 certificate to an account.
func (s *Service) LinkCertificate(ctx context.Context, accountID string, cert core.X509Certificate) error {
	if r := s.certOK.Validate(cert); !r.OK() {
		return &ValidationError{Result: r}
	}
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		return err
	}

	cert.AccountID = accountID
	cert.CreatedAt = time.Now().UTC()
	if err := s.accounts.AddCertificate(ctx, &cert); err != nil {
		return err
	}

	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategorySecurity,
		AccountRef: accountID,
		Message:    "certificate linked",
		Payload:    audit.X509CertChange{SubjectDN: cert.SubjectDN, Action: "added"},
	})
	return nil
}

// UnlinkCertificate removes a certificate by subject DN.
func (s *Service) UnlinkCertificate(ctx context.Context, accountID, subjectDN string) error {
	if err := s.accounts.RemoveCertificate(ctx, accountID, subjectDN); err != nil {
		return err
	}
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategorySecurity,
		AccountRef: accountID,
		Message:    "certificate unlinked",
		Payload:    audit.X509CertChange{SubjectDN: subjectDN, Action: "removed"},
	})
	return nil
}

// Certificates lists the certificates linked to an account.
func (s *Service) Certificates(ctx context.Context, accountID string) ([]core.X509Certificate, error) {
	return s.accounts.CertificatesOf(ctx, accountID)
}

// ValidationError reports a rejected account or credential change.
type ValidationError struct {
	Result check.Result
}

func (e *ValidationError) Error() string {
	return "invalid account data: " + e.Result.Message
}
