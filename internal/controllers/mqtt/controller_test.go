package mqttctrl

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Agrid-Dev/docalc/internal/overlap"
	"github.com/Agrid-Dev/docalc/internal/testutil"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	err  error
	done chan struct{}
}

func (t fakeToken) Done() <-chan struct{} {
	if t.done == nil {
		t.done = make(chan struct{})
		close(t.done)
	}
	return t.done
}

func (t fakeToken) Wait() bool                       { return true }
func (t fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t fakeToken) Error() error                     { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	publishes []publishCall
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(_ uint)      {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		tmp, _ := json.Marshal(v)
		b = tmp
	}
	c.publishes = append(c.publishes, publishCall{
		topic: topic, qos: qos, retain: retained, payload: b,
	})
	return fakeToken{}
}
func (c *fakeClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(_ ...string) mqtt.Token       { return fakeToken{} }
func (c *fakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader  { return mqtt.ClientOptionsReader{} }

// ---- tests ----
func newTestController(t *testing.T, cfg Config) (*Controller, *testutil.FakeDistrictService, *fakeClient) {
	t.Helper()
	svc := testutil.NewFakeDistrictService()
	c, err := New(svc, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeClient{}
	c.client = fc
	return c, svc, fc
}

func TestNewDefaults(t *testing.T) {
	c, _, _ := newTestController(t, Config{DistrictID: "campus"})

	if c.cfg.BrokerURL != "tcp://localhost:1883" {
		t.Fatalf("expected default BrokerURL, got %q", c.cfg.BrokerURL)
	}
	if c.cfg.BaseTopic != "docalc/campus" {
		t.Fatalf("expected default BaseTopic, got %q", c.cfg.BaseTopic)
	}
	if c.cfg.ClientID != "docalc-campus" {
		t.Fatalf("expected default ClientID, got %q", c.cfg.ClientID)
	}
	if c.cfg.PublishInterval != 1*time.Second {
		t.Fatalf("expected default PublishInterval, got %v", c.cfg.PublishInterval)
	}
}

func TestNewValidation(t *testing.T) {
	svc := testutil.NewFakeDistrictService()

	if _, err := New(svc, Config{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error when DistrictID missing")
	}

	if _, err := New(svc, Config{DistrictID: "x", QoS: 2}, zerolog.Nop()); err == nil {
		t.Fatal("expected error when QoS > 1")
	}
}

func TestTopicJoin(t *testing.T) {
	c, _, _ := newTestController(t, Config{DistrictID: "campus", BaseTopic: "docalc/campus/"})
	if got := c.topic("report"); got != "docalc/campus/report" {
		t.Fatalf("expected topic without double slashes, got %q", got)
	}
}

func TestDecodeValueStrict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := decodeValueStrict[copDTO]([]byte(`{"value": {"heat_pump": 4, "chiller": 5}}`))
		if err != nil {
			t.Fatal(err)
		}
		if v.HeatPump != 4 || v.Chiller != 5 {
			t.Fatalf("unexpected value %+v", v)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := decodeValueStrict[copDTO]([]byte(`{}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := decodeValueStrict[copDTO]([]byte(`{"value":{"heat_pump":4},"extra":1}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown nested field rejected", func(t *testing.T) {
		_, err := decodeValueStrict[copDTO]([]byte(`{"value":{"boiler":4}}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := decodeValueStrict[copDTO]([]byte(`{"value":`))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOnMessage_IgnoresWrongPrefix(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})

	c.onMessage(nil, fakeMessage{
		topic:   "otherprefix/set/cop",
		payload: []byte(`{"value":{"heat_pump":3,"chiller":3}}`),
	})

	if svc.SetCOPCalled {
		t.Fatal("expected SetCOP not called")
	}
}

func TestOnMessage_COP(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})

	c.onMessage(nil, fakeMessage{
		topic:   "docalc/campus/set/cop",
		payload: []byte(`{"value":{"heat_pump":3.5,"chiller":4}}`),
	})

	if !svc.SetCOPCalled || svc.SetCOPArg != (overlap.COP{HeatPump: 3.5, Chiller: 4}) {
		t.Fatalf("expected SetCOP(3.5, 4), got called=%v arg=%v", svc.SetCOPCalled, svc.SetCOPArg)
	}
}

func TestOnMessage_Buildings(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})

	c.onMessage(nil, fakeMessage{
		topic:   "docalc/campus/set/buildings",
		payload: []byte(`{"value":[{"name":"a","heat":[1,2],"cool":[2,1]}]}`),
	})

	if !svc.SetBuildingsCalled || len(svc.SetBuildingsArg) != 1 {
		t.Fatalf("expected SetBuildings with 1 building, got called=%v arg=%v", svc.SetBuildingsCalled, svc.SetBuildingsArg)
	}
	b := svc.SetBuildingsArg[0]
	if b.Name != "a" || b.Heat[1] != 2 || b.Cool[0] != 2 {
		t.Fatalf("unexpected building %+v", b)
	}
}

func TestOnMessage_InvalidPayload_DoesNotCallService(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})

	c.onMessage(nil, fakeMessage{
		topic:   "docalc/campus/set/buildings",
		payload: []byte(`{"value":"weird"}`),
	})

	if svc.SetBuildingsCalled {
		t.Fatal("expected SetBuildings not called")
	}
}

func TestOnMessage_UnknownField_Ignored(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})

	c.onMessage(nil, fakeMessage{
		topic:   "docalc/campus/set/turbo",
		payload: []byte(`{"value":1}`),
	})

	if svc.SetBuildingsCalled || svc.SetCOPCalled {
		t.Fatal("expected no service call")
	}
}

func TestPublishReport_PublishesJSON(t *testing.T) {
	c, _, fc := newTestController(t, Config{DistrictID: "campus", QoS: 1, RetainReport: true})

	c.publishReport()

	if len(fc.publishes) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(fc.publishes))
	}

	p := fc.publishes[0]
	if p.topic != "docalc/campus/report" {
		t.Fatalf("expected report topic, got %q", p.topic)
	}
	if p.qos != 1 || p.retain != true {
		t.Fatalf("expected qos=1 retain=true, got qos=%d retain=%v", p.qos, p.retain)
	}

	var got map[string]any
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("invalid published json: %v payload=%s", err, string(p.payload))
	}
	if got["district_doc"] != 0.5 {
		t.Fatalf("expected district_doc=0.5, got %v", got["district_doc"])
	}
	if got["network_doc"] != 0.125 {
		t.Fatalf("expected network_doc=0.125, got %v", got["network_doc"])
	}
}

// Service errors are logged and swallowed.
func TestOnMessage_ServiceError_IsIgnored(t *testing.T) {
	c, svc, _ := newTestController(t, Config{DistrictID: "campus"})
	svc.SetCOPErr = errors.New("boom")

	c.onMessage(nil, fakeMessage{
		topic:   "docalc/campus/set/cop",
		payload: []byte(`{"value":{"heat_pump":0.5,"chiller":4}}`),
	})

	if !svc.SetCOPCalled {
		t.Fatal("expected SetCOP called")
	}
}
