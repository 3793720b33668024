package mqtt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
)

// testCerts holds PEM files for a throwaway CA and a client certificate it signed
type testCerts struct {
	ca   string
	cert string
	key  string
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func generateTestCerts(t *testing.T) testCerts {
	t.Helper()
	dir := t.TempDir()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("ca key: %v", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("ca cert: %v", err)
	}

	clientKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("client key: %v", err)
	}
	clientTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "sonar-consumer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	clientDER, err := x509.CreateCertificate(rand.Reader, clientTemplate, caTemplate, &clientKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("client cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(clientKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	certs := testCerts{
		ca:   filepath.Join(dir, "authority.pem"),
		cert: filepath.Join(dir, "certificate.pem"),
		key:  filepath.Join(dir, "key.pem"),
	}
	writePEM(t, certs.ca, "CERTIFICATE", caDER)
	writePEM(t, certs.cert, "CERTIFICATE", clientDER)
	writePEM(t, certs.key, "EC PRIVATE KEY", keyDER)
	return certs
}

// TestNewTLSConfig_Unit tests TLS configuration against generated certificates
func TestNewTLSConfig_Unit(t *testing.T) {
	certs := generateTestCerts(t)

	t.Run("ValidTLSWithCA", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, CACert: certs.ca})
		if err != nil {
			t.Fatalf("Failed to create TLS config: %v", err)
		}
		if tlsConfig.RootCAs == nil {
			t.Error("RootCAs not set")
		}
		if tlsConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify should be false by default")
		}
	})

	t.Run("ValidTLSWithClientCert", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{
			TLSEnabled: true,
			CACert:     certs.ca,
			ClientCert: certs.cert,
			ClientKey:  certs.key,
		})
		if err != nil {
			t.Fatalf("Failed to create TLS config: %v", err)
		}
		if len(tlsConfig.Certificates) != 1 {
			t.Errorf("expected 1 client certificate, got %d", len(tlsConfig.Certificates))
		}
	})

	t.Run("InsecureSkipVerify", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, InsecureSkip: true})
		if err != nil {
			t.Fatalf("Failed to create TLS config: %v", err)
		}
		if !tlsConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify should be true")
		}
		if tlsConfig.RootCAs != nil {
			t.Error("RootCAs should be nil without a CA file")
		}
	})

	t.Run("MissingCACert", func(t *testing.T) {
		_, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, CACert: filepath.Join(t.TempDir(), "missing.pem")})
		if err == nil {
			t.Fatal("expected error for missing CA file")
		}
	})

	t.Run("CorruptedCACert", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.pem")
		if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, CACert: path})
		if err == nil {
			t.Fatal("expected error for corrupted CA file")
		}
	})

	t.Run("MismatchedClientCertKey", func(t *testing.T) {
		other := generateTestCerts(t)
		_, err := newTLSConfig(&config.MQTTConfig{
			TLSEnabled: true,
			ClientCert: certs.cert,
			ClientKey:  other.key,
		})
		if err == nil {
			t.Fatal("expected error for mismatched cert and key")
		}
	})

	t.Run("OnlyClientCertNoKey", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, ClientCert: certs.cert})
		if err != nil {
			t.Fatalf("Failed to create TLS config: %v", err)
		}
		if len(tlsConfig.Certificates) != 0 {
			t.Error("certificate should not load without a key")
		}
	})
}

// fakeToken is a paho token that completes immediately
type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	tok := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(tok.done)
	}
	return tok
}

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakePaho records publishes; methods it does not override panic through the nil embedded client
type fakePaho struct {
	mqtt.Client

	mu           sync.Mutex
	published    []published
	err          error
	hang         bool
	connected    bool
	disconnected bool
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := payload.([]byte)
	f.published = append(f.published, published{topic: topic, qos: qos, retained: retained, payload: data})
	return newFakeToken(f.err, !f.hang)
}

func (f *fakePaho) IsConnected() bool { return f.connected }

func (f *fakePaho) Disconnect(uint) { f.disconnected = true }

func testMQTTConfig() *config.MQTTConfig {
	return &config.MQTTConfig{
		QoS:               1,
		Retained:          true,
		WriteTimeout:      time.Second,
		DisconnectTimeout: 10,
	}
}

func TestClientPublish(t *testing.T) {
	fake := &fakePaho{connected: true}
	client := newClient(fake, testMQTTConfig(), log.Discard())

	if err := client.Publish(context.Background(), "sonar/default/post", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(fake.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(fake.published))
	}
	got := fake.published[0]
	if got.topic != "sonar/default/post" || got.qos != 1 || !got.retained || string(got.payload) != `{"a":1}` {
		t.Errorf("unexpected publish %+v", got)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fake.disconnected {
		t.Error("Close should disconnect a connected client")
	}
}

func TestClientPublishError(t *testing.T) {
	brokerErr := errors.New("not authorized")
	client := newClient(&fakePaho{err: brokerErr}, testMQTTConfig(), log.Discard())

	err := client.Publish(context.Background(), "t", []byte("x"))
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestClientPublishTimeout(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.WriteTimeout = 20 * time.Millisecond
	client := newClient(&fakePaho{hang: true}, cfg, log.Discard())

	if err := client.Publish(context.Background(), "t", []byte("x")); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClientPublishContextCancelled(t *testing.T) {
	client := newClient(&fakePaho{hang: true}, testMQTTConfig(), log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Publish(ctx, "t", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientCloseDisconnected(t *testing.T) {
	fake := &fakePaho{}
	client := newClient(fake, testMQTTConfig(), log.Discard())
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if fake.disconnected {
		t.Error("Close should not disconnect an offline client")
	}
}

func TestPoolRoundRobin(t *testing.T) {
	fakes := []*fakePaho{{}, {}, {}}
	clients := make([]*Client, len(fakes))
	for i, f := range fakes {
		clients[i] = newClient(f, testMQTTConfig(), log.Discard())
	}
	pool := newPool(clients, log.Discard())

	if pool.Size() != 3 {
		t.Fatalf("expected size 3, got %d", pool.Size())
	}
	for i := 0; i < 6; i++ {
		if err := pool.Publish(context.Background(), "t", []byte("x")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}
	for i, f := range fakes {
		if len(f.published) != 2 {
			t.Errorf("client %d: expected 2 publishes, got %d", i, len(f.published))
		}
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
