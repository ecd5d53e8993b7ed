package export

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/sstent/garminexport/internal/activity"
	"github.com/sstent/garminexport/internal/garmin"
)

// DeviceAPI fetches device descriptions.
type DeviceAPI interface {
	Device(ctx context.Context, installationID string) (activity.Record, error)
}

// GearAPI fetches the gear used for an activity.
type GearAPI interface {
	Gear(ctx context.Context, activityID string) ([]activity.Record, error)
}

// optional is a cached lookup result. ok is false when the device was looked
// up and found to have no usable name.
type optional struct {
	value string
	ok    bool
}

// DeviceResolver names the device an activity was recorded with. Lookups are
// cached per installation id for the lifetime of the resolver.
type DeviceResolver struct {
	api    DeviceAPI
	cache  map[string]optional
	logger *log.Logger
}

// NewDeviceResolver creates a DeviceResolver with an empty cache.
func NewDeviceResolver(api DeviceAPI, logger *log.Logger) *DeviceResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &DeviceResolver{api: api, cache: make(map[string]optional), logger: logger}
}

// Resolve returns the device display name for an activity detail. Failures
// are logged and reported as no device.
func (r *DeviceResolver) Resolve(ctx context.Context, detail activity.Record) (string, bool) {
	meta := detail.Sub("metadataDTO")
	if meta == nil {
		r.logger.Warn("no metadataDTO")
		return "", false
	}
	raw := meta.Get("deviceApplicationInstallationId")
	if raw == nil {
		return "", false
	}
	id := activity.Text(raw)

	if cached, seen := r.cache[id]; seen {
		return cached.value, cached.ok
	}
	result := r.lookup(ctx, id, meta.Sub("deviceMetaDataDTO"))
	r.cache[id] = result
	return result.value, result.ok
}

// lookup queries the device endpoint unless the metadata already says the
// device is unknown (deviceId null or "0").
func (r *DeviceResolver) lookup(ctx context.Context, id string, deviceMeta activity.Record) optional {
	if deviceID, listed := deviceMeta["deviceId"]; listed {
		if !activity.Truthy(deviceID) || activity.Text(deviceID) == "0" {
			return optional{}
		}
	}

	details, err := r.api.Device(ctx, id)
	if err != nil {
		var se *garmin.StatusError
		if errors.As(err, &se) {
			r.logger.Warn("Device details are empty", "deviceId", id, "status", se.StatusCode)
			return optional{value: "device-id:" + id, ok: true}
		}
		r.logger.Warn("Device lookup failed", "deviceId", id, "err", err)
		return optional{}
	}
	if activity.AbsentOrNull("productDisplayName", details) {
		r.logger.Warn("Device details incomplete", "deviceId", id)
		return optional{}
	}
	return optional{value: details.String("productDisplayName") + " " + details.String("versionString"), ok: true}
}

// GearResolver names the gear used for an activity. Gear differs between
// activities, so nothing is cached.
type GearResolver struct {
	api    GearAPI
	logger *log.Logger
}

// NewGearResolver creates a GearResolver.
func NewGearResolver(api GearAPI, logger *log.Logger) *GearResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &GearResolver{api: api, logger: logger}
}

// Resolve returns the display name of the first gear item, falling back to
// its make and model.
func (r *GearResolver) Resolve(ctx context.Context, activityID string) (string, bool) {
	gear, err := r.api.Gear(ctx, activityID)
	if err != nil {
		r.logger.Debug("Unable to get gear", "activityId", activityID, "err", err)
		return "", false
	}
	if len(gear) == 0 {
		return "", false
	}
	name, model := gear[0].String("displayName"), gear[0].String("customMakeModel")
	r.logger.Debug("Gear", "activityId", activityID, "displayName", name, "model", model)
	if name != "" {
		return name, true
	}
	return model, model != ""
}
