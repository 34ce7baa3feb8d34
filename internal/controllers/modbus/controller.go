package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/docalc/internal/overlap"
	"github.com/Agrid-Dev/docalc/internal/ports"
)

// Register map.
//
// Input registers (read only, fn 4):
//
//	0  district DOC
//	1  duration DOC
//	2  mean BES DOC
//	3  network DOC
//	4  building count
//	5+ BES DOC per building, in building order
//
// Holding registers (fn 3, 6, 16):
//
//	0  heat pump COP
//	1  chiller COP
const (
	irDistrictDOC = iota
	irDurationDOC
	irMeanBESDOC
	irNetworkDOC
	irBuildingCount
	irFirstBuilding
)

const (
	hrHeatPumpCOP = iota
	hrChillerCOP
	holdingRegisters
)

const (
	DOCScale int = 10000
	COPScale int = 100
)

// Config for the Modbus controller.
type Config struct {
	Addr   string
	UnitID byte // UnitID (Modbus slave/unit ID). Use an integer 1..247. Frames for other units are rejected.
}

type Controller struct {
	svc    ports.DistrictService
	cfg    Config
	logger zerolog.Logger

	serv *mbserver.Server
}

func New(svc ports.DistrictService, cfg Config, logger zerolog.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With().Str("controller", "modbus").Logger(),
	}, nil
}

// Run starts the Modbus server with handlers reading from and writing to the
// district service. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(3, c.forUnit(c.readHoldingRegisters))
	serv.RegisterFunctionHandler(4, c.forUnit(c.readInputRegisters))
	serv.RegisterFunctionHandler(6, c.forUnit(c.writeSingleRegister))
	serv.RegisterFunctionHandler(16, c.forUnit(c.writeMultipleRegisters))

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.logger.Info().Str("addr", c.cfg.Addr).Uint8("unit_id", c.cfg.UnitID).Msg("listening")

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

type handlerFunc func(*mbserver.Server, mbserver.Framer) ([]byte, *mbserver.Exception)

// forUnit answers only frames addressed to the configured unit ID.
func (c *Controller) forUnit(h handlerFunc) handlerFunc {
	return func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		if tf, ok := frame.(*mbserver.TCPFrame); ok && tf.Device != c.cfg.UnitID {
			return []byte{}, &mbserver.GatewayTargetDeviceFailedtoRespond
		}
		return h(s, frame)
	}
}

func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData())
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	rep := c.svc.Report()
	if start+qty > irFirstBuilding+len(rep.Buildings) {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	regs := make([]uint16, 0, qty)
	for addr := start; addr < start+qty; addr++ {
		switch addr {
		case irDistrictDOC:
			regs = append(regs, encodeRatio(rep.DistrictDOC))
		case irDurationDOC:
			regs = append(regs, encodeRatio(rep.DurationDOC))
		case irMeanBESDOC:
			regs = append(regs, encodeRatio(rep.MeanBESDOC))
		case irNetworkDOC:
			regs = append(regs, encodeRatio(rep.NetworkDOC))
		case irBuildingCount:
			regs = append(regs, uint16(len(rep.Buildings)))
		default:
			regs = append(regs, encodeRatio(rep.Buildings[addr-irFirstBuilding].BESDOC))
		}
	}
	return registerResponse(regs), &mbserver.Success
}

func (c *Controller) readHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData())
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	if start+qty > holdingRegisters {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	cop := c.svc.COP()
	all := []uint16{encodeCOP(cop.HeatPump), encodeCOP(cop.Chiller)}
	return registerResponse(all[start : start+qty]), &mbserver.Success
}

func (c *Controller) writeSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := int(binary.BigEndian.Uint16(data[0:2]))
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.applyCOP(addr, []uint16{value}); exc != &mbserver.Success {
		return []byte{}, exc
	}

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

func (c *Controller) writeMultipleRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if quantity == 0 || byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
	}
	if exc := c.applyCOP(int(start), values); exc != &mbserver.Success {
		return []byte{}, exc
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

// applyCOP writes consecutive holding registers as one COP update so a
// multi-register write is validated as a whole. Registers not written keep
// the value current at the time of the update.
func (c *Controller) applyCOP(start int, values []uint16) *mbserver.Exception {
	if start+len(values) > holdingRegisters {
		return &mbserver.IllegalDataAddress
	}
	_, err := c.svc.UpdateCOP(func(cop overlap.COP) overlap.COP {
		for i, v := range values {
			switch start + i {
			case hrHeatPumpCOP:
				cop.HeatPump = decodeCOP(v)
			case hrChillerCOP:
				cop.Chiller = decodeCOP(v)
			}
		}
		return cop
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("cop write rejected")
		return &mbserver.IllegalDataValue
	}
	return &mbserver.Success
}

func readRange(data []byte) (int, int, *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	return start, qty, &mbserver.Success
}

// registerResponse builds byte count + register bytes.
func registerResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

func encodeRatio(v float64) uint16 {
	return encodeScaled(v, DOCScale)
}

func encodeCOP(v float64) uint16 {
	return encodeScaled(v, COPScale)
}

func decodeCOP(u uint16) float64 {
	return float64(u) / float64(COPScale)
}

func encodeScaled(v float64, scale int) uint16 {
	r := math.Round(v * float64(scale))
	return uint16(math.Min(math.Max(r, 0), math.MaxUint16))
}
