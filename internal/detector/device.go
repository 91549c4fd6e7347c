package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	maxKnownDevices = 5
	newDeviceScore  = 20
)

// Fingerprint derives a stable device fingerprint from the user-agent
// string. Callers that collect richer client hints can concatenate
// them into the input; the detector only compares hashes.
func Fingerprint(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}

// Device compares the request's device fingerprint against the
// identity's recently seen devices. The first device is recorded
// silently; any later unknown fingerprint scores and is then recorded.
type Device struct {
	store domain.KVStore
}

func NewDevice(store domain.KVStore) *Device {
	return &Device{store: store}
}

func (d *Device) Name() string { return domain.RuleDeviceFingerprint }

func (d *Device) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if !check.HasIdentity() || check.UserAgent == "" {
		return nil, nil
	}

	fp := Fingerprint(check.UserAgent)
	key := domain.DeviceHistoryKey(check.IdentityID)

	known, err := d.knownDevices(ctx, key)
	if err != nil {
		return nil, err
	}

	if len(known) == 0 {
		// First device on file: establish the baseline, no signal.
		if err := d.save(ctx, key, []string{fp}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if idx := indexOf(known, fp); idx >= 0 {
		// Known device: refresh recency.
		known = append(known[:idx], known[idx+1:]...)
		if err := d.save(ctx, key, prepend(known, fp, maxKnownDevices)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := d.save(ctx, key, prepend(known, fp, maxKnownDevices)); err != nil {
		return nil, err
	}

	return &domain.Signal{
		Rule:   domain.RuleDeviceFingerprint,
		Score:  newDeviceScore,
		Reason: "new device fingerprint for this identity",
		Metadata: map[string]string{
			"fingerprint": fp[:12],
		},
	}, nil
}

func (d *Device) knownDevices(ctx context.Context, key string) ([]string, error) {
	raw, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var known []string
	if err := json.Unmarshal(raw, &known); err != nil {
		return nil, nil // corrupt history starts over
	}
	return known, nil
}

func (d *Device) save(ctx context.Context, key string, devices []string) error {
	buf, err := json.Marshal(devices)
	if err != nil {
		return err
	}
	return d.store.Set(ctx, key, buf, domain.DeviceHistoryTTL)
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// prepend puts v at the front of list and trims to max entries.
func prepend(list []string, v string, max int) []string {
	out := append([]string{v}, list...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}
