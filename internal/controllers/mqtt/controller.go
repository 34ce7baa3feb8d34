package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
	"github.com/Agrid-Dev/docalc/internal/ports"
)

type Config struct {
	// Identity
	DistrictID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainReport    bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc    ports.DistrictService
	cfg    Config
	logger zerolog.Logger

	client mqtt.Client
}

func New(svc ports.DistrictService, cfg Config, logger zerolog.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DistrictID == "" {
		return nil, errors.New("mqtt: DistrictID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "docalc/" + cfg.DistrictID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "docalc-" + cfg.DistrictID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With().Str("controller", "mqtt").Logger(),
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Error().Err(err).Str("topic", topic).Msg("subscribe failed")
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.logger.Info().Str("broker", c.cfg.BrokerURL).Str("topic", c.cfg.BaseTopic).Msg("connected")

	// Publish loop: publish the report on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.publishReport()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := toDTO(c.svc.Report())
			if !reflect.DeepEqual(cur, last) {
				last = c.publishReport()
			}
		}
	}
}

func (c *Controller) publishReport() reportDTO {
	dto := toDTO(c.svc.Report())
	b, err := json.Marshal(dto)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode report")
		return dto
	}
	c.client.Publish(c.topic("report"), c.cfg.QoS, c.cfg.RetainReport, b)
	return dto
}

type reportDTO struct {
	DistrictID  string              `json:"district_id"`
	Steps       int                 `json:"steps"`
	DistrictDOC float64             `json:"district_doc"`
	DurationDOC float64             `json:"duration_doc"`
	MeanBESDOC  float64             `json:"mean_bes_doc"`
	NetworkDOC  float64             `json:"network_doc"`
	Buildings   []buildingReportDTO `json:"buildings"`
}

type buildingReportDTO struct {
	Name   string  `json:"name"`
	BESDOC float64 `json:"bes_doc"`
}

type buildingDTO struct {
	Name string    `json:"name"`
	Heat []float64 `json:"heat"`
	Cool []float64 `json:"cool"`
}

type copDTO struct {
	HeatPump float64 `json:"heat_pump"`
	Chiller  float64 `json:"chiller"`
}

func toDTO(r district.Report) reportDTO {
	dto := reportDTO{
		DistrictID:  r.DistrictID,
		Steps:       r.Steps,
		DistrictDOC: r.DistrictDOC,
		DurationDOC: r.DurationDOC,
		MeanBESDOC:  r.MeanBESDOC,
		NetworkDOC:  r.NetworkDOC,
		Buildings:   make([]buildingReportDTO, len(r.Buildings)),
	}
	for i, b := range r.Buildings {
		dto.Buildings[i] = buildingReportDTO{Name: b.Name, BESDOC: b.BESDOC}
	}
	return dto
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)
	log := c.logger.With().Str("topic", t).Logger()

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "cop":
		v, err := decodeValueStrict[copDTO](payload)
		if err != nil {
			log.Warn().Err(err).Msg("invalid command payload")
			return
		}
		if _, err := c.svc.SetCOP(overlap.COP{HeatPump: v.HeatPump, Chiller: v.Chiller}); err != nil {
			log.Warn().Err(err).Msg("cop update rejected")
		}

	case "buildings":
		v, err := decodeValueStrict[[]buildingDTO](payload)
		if err != nil {
			log.Warn().Err(err).Msg("invalid command payload")
			return
		}
		buildings := make([]district.Building, len(v))
		for i, b := range v {
			buildings[i] = district.Building{Name: b.Name, Heat: b.Heat, Cool: b.Cool}
		}
		if _, err := c.svc.SetBuildings(buildings); err != nil {
			log.Warn().Err(err).Msg("buildings update rejected")
		}

	default:
		log.Debug().Msg("unknown command")
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
