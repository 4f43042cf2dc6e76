package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

func newService(t *testing.T) (*Service, *audit.ChanSink) {
	t.Helper()
	sink := audit.NewChanSink(8)
	return NewService(mem.New().Accounts(), sink), sink
}

func TestCreate(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "alice", "alice@iam.test")
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.True(t, a.Active)

	ev := <-sink.C
	require.Equal(t, audit.CategoryAccount, ev.Category)
	require.Equal(t, a.ID, ev.AccountRef)

	// second account with the same username conflicts
	_, err = svc.Create(ctx, "alice", "other@iam.test")
	require.ErrorIs(t, err, core.ErrConflict)
}

func TestCreate_EmptyUsername(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), "", "x@iam.test")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLinkSSHKey(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "alice", "alice@iam.test")
	require.NoError(t, err)
	<-sink.C

	key := core.SSHKey{
		Fingerprint: "SHA256:4rTknUTBH2uzM1zYLbQuFodSjmPTNPNCSvCMDnOAmpo",
		Label:       "laptop",
		Value:       "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIHx example",
	}
	require.NoError(t, svc.LinkSSHKey(ctx, a.ID, key))

	ev := <-sink.C
	require.Equal(t, audit.CategorySecurity, ev.Category)
	require.Equal(t, "ssh-key", ev.Kind())

	keys, err := svc.SSHKeys(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, a.ID, keys[0].AccountID)
}

func TestLinkSSHKey_Invalid(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "alice", "alice@iam.test")
	require.NoError(t, err)

	var verr *ValidationError
	err = svc.LinkSSHKey(ctx, a.ID, core.SSHKey{Fingerprint: "not a fingerprint", Value: "x"})
	require.ErrorAs(t, err, &verr)

	err = svc.LinkSSHKey(ctx, a.ID, core.SSHKey{
		Fingerprint: "SHA256:4rTknUTBH2uzM1zYLbQuFodSjmPTNPNCSvCMDnOAmpo",
	})
	require.ErrorAs(t, err, &verr)
}

func TestLinkSSHKey_UnknownAccount(t *testing.T) {
	svc, _ := newService(t)
	err := svc.LinkSSHKey(context.Background(), "missing", core.SSHKey{
		Fingerprint: "SHA256:4rTknUTBH2uzM1zYLbQuFodSjmPTNPNCSvCMDnOAmpo",
		Value:       "ssh-ed25519 AAAA example",
	})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestUnlinkSSHKey_Unknown(t *testing.T) {
	svc, _ := newService(t)
	err := svc.UnlinkSSHKey(context.Background(), "missing", "SHA256:nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCertificateLifecycle(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "alice", "alice@iam.test")
	require.NoError(t, err)
	<-sink.C

	cert := core.X509Certificate{
		SubjectDN: "CN=alice,O=iam",
		IssuerDN:  "CN=iam-ca",
		PEM:       "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----",
	}
	require.NoError(t, svc.LinkCertificate(ctx, a.ID, cert))
	<-sink.C

	certs, err := svc.Certificates(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)

	require.NoError(t, svc.UnlinkCertificate(ctx, a.ID, cert.SubjectDN))
	certs, err = svc.Certificates(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, certs)

	require.ErrorIs(t, svc.UnlinkCertificate(ctx, a.ID, cert.SubjectDN), core.ErrNotFound)
}
