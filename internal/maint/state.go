package maint

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/c9s/goprocinfo/linux"
	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/flash"
	"github.com/conn-castle/maintd/internal/messages"
)

const procUptimePath = "/proc/uptime"

func procUptime() (time.Duration, error) {
	uptime, err := linux.ReadUptime(procUptimePath)
	if err != nil {
		return 0, err
	}
	return time.Duration(uptime.Total * float64(time.Second)), nil
}

// DeviceInfo returns all definitions plus the current time and the uptime in seconds.
func (d *Dispatcher) DeviceInfo() map[string]any {
	info := make(map[string]any, d.store.Len()+3)
	for key, value := range d.store.Snapshot() {
		info[key] = value
	}
	now := d.opts.Now()
	_, offset := now.Zone()
	info["timetick"] = now.Unix()
	info["localtimetick"] = now.Unix() + int64(offset)
	uptime := int64(-1)
	if up, err := d.opts.Uptime(); err != nil {
		d.log.Warn("uptime unavailable", zap.Error(err))
	} else {
		uptime = int64(up / time.Second)
	}
	info["uptime"] = uptime
	return info
}

func (d *Dispatcher) devInfo(*request) (Reply, error) {
	return Immediate(d.DeviceInfo()), nil
}

func (d *Dispatcher) userLevel(req *request) (Reply, error) {
	if !req.params.Has("level") {
		return Immediate(strconv.Itoa(d.store.Int(defs.KeyStatusUserLevel, 0))), nil
	}
	level, ok := req.params.Int("level")
	if !ok {
		return Reply{}, invalid(messages.MaintInvalidUserLevel)
	}
	if err := d.flash.SetUserLevel(level); err != nil {
		return Reply{}, wrapError(KindResource, err.Error(), err)
	}
	d.store.Set(defs.KeyStatusUserLevel, strconv.Itoa(level))
	return Immediate(nil), nil
}

func (d *Dispatcher) property(req *request) (Reply, error) {
	key, ok := req.params.String("key")
	if !ok {
		return Immediate(nil), nil
	}
	if !flash.ValidName(key) {
		return Reply{}, invalid(messages.MaintInvalidPropertyKey)
	}
	if value, present := req.params.Raw("value"); present {
		var err error
		if isNull(value) {
			err = d.flash.DeleteProperty(key)
		} else {
			err = d.flash.SetProperty(key, value)
		}
		if err != nil {
			return Reply{}, wrapError(KindResource, err.Error(), err)
		}
		return Immediate(nil), nil
	}
	value, found, err := d.flash.Property(key)
	if err != nil {
		return Reply{}, wrapError(KindResource, err.Error(), err)
	}
	if !found {
		return Immediate(nil), nil
	}
	return Immediate(value), nil
}

func (d *Dispatcher) alert(req *request) (Reply, error) {
	if req.params.Has("new") {
		alert, ok := req.params.Object("new")
		if !ok {
			return Reply{}, invalid(messages.MaintInvalidAlert)
		}
		id, err := d.flash.AddAlert(map[string]json.RawMessage(alert))
		if err != nil {
			return Reply{}, d.alertError(err)
		}
		return Immediate(id), nil
	}
	if id, ok := req.params.String("confirm"); ok {
		existed, err := d.flash.ConfirmAlert(id)
		if err != nil {
			return Reply{}, d.alertError(err)
		}
		d.log.Debug("alert confirmed", zap.String("id", id), zap.Bool("existed", existed))
		return Immediate(nil), nil
	}
	next, found, err := d.flash.NextAlert()
	if err != nil {
		return Reply{}, d.alertError(err)
	}
	if !found {
		return Immediate(nil), nil
	}
	return Immediate(next), nil
}

func (d *Dispatcher) alertError(err error) error {
	if errors.Is(err, flash.ErrInvalidName) {
		return invalid(messages.MaintInvalidAlertID)
	}
	return wrapError(KindResource, err.Error(), err)
}
