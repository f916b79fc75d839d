package hal

import (
	"context"
	"time"

	"gasnode-go/types"
)

// ledAdaptor drives one output pin as the board status LED.
type ledAdaptor struct {
	id     string
	pin    GPIOPin
	params types.LEDParams
}

func NewLEDAdaptor(id string, pin GPIOPin, p types.LEDParams) Adaptor {
	return &ledAdaptor{id: id, pin: pin, params: p}
}

func (a *ledAdaptor) ID() string { return a.id }

func (a *ledAdaptor) Capabilities() []CapInfo {
	return []CapInfo{
		{Kind: string(types.KindLED), Info: map[string]any{
			"pin": a.pin.Number(), "schema_version": 1, "driver": "gpio",
		}},
	}
}

func (a *ledAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	return 0, nil
}

func (a *ledAdaptor) Collect(ctx context.Context) (Sample, error) {
	level := uint8(0)
	if a.pin.Get() {
		level = 1
	}
	return Sample{
		{Kind: string(types.KindLED), Payload: types.LEDValue{Level: level}, TsMs: time.Now().UnixMilli()},
	}, nil
}

func (a *ledAdaptor) Control(kind, method string, payload any) (any, error) {
	switch method {
	case "set":
		var req types.LEDSet
		if err := decodeJSON(payload, &req); err != nil {
			return nil, err
		}
		a.pin.Set(req.Level)
		return types.OKReply{OK: true}, nil
	case "get":
		level := uint8(0)
		if a.pin.Get() {
			level = 1
		}
		return types.LEDValue{Level: level}, nil
	default:
		return nil, ErrUnsupported
	}
}
