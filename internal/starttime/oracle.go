/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package starttime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// OracleConfig configures the time-of-event service client.
type OracleConfig struct {
	BaseURL   string
	Method    int // calculation method forwarded to the service
	Latitude  float64
	Longitude float64
	Location  *time.Location // used when the service reports no zone
	RPS       float64
	Client    *http.Client
}

// Oracle asks a remote time-of-event service when a named event (Params
// "Event") occurs on a date. Optional Params "OffsetMinutes" moves the start
// relative to the event.
type Oracle struct {
	cfg     OracleConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[oracleKey]*oracleDay
}

type oracleKey struct {
	date     string
	lat, lon float64
	method   int
}

type oracleDay struct {
	timings  map[string]string
	location *time.Location
}

type oracleResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
		Date    struct {
			Gregorian struct {
				Date string `json:"date"` // DD-MM-YYYY
			} `json:"gregorian"`
		} `json:"date"`
		Meta struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// NewOracle creates an oracle calculator. Its cache lives as long as the value.
func NewOracle(cfg OracleConfig, logger zerolog.Logger) *Oracle {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	return &Oracle{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.With().Str("component", "oracle").Logger(),
		cache:   make(map[oracleKey]*oracleDay),
	}
}

func (o *Oracle) Validate(s lineup.Schedule) error {
	if err := requireParam(s, "Event"); err != nil {
		return err
	}
	if v := s.Param("OffsetMinutes"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid OffsetMinutes %q", v)
		}
	}
	return nil
}

func (o *Oracle) Calculate(ctx context.Context, date string, s lineup.Schedule, listener *Listener) (time.Time, error) {
	lat, lon := o.cfg.Latitude, o.cfg.Longitude
	if listener != nil && listener.Located {
		lat, lon = listener.Latitude, listener.Longitude
	}

	d, err := o.lookup(ctx, date, lat, lon)
	if err != nil {
		return time.Time{}, err
	}

	event := s.Param("Event")
	raw, ok := d.timings[event]
	if !ok {
		return time.Time{}, fmt.Errorf("oracle has no timing for %q", event)
	}
	// Values may carry a zone suffix, e.g. "12:03 (IRST)".
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("oracle returned empty timing for %q", event)
	}
	h, m, _, err := parseClock(fields[0])
	if err != nil {
		return time.Time{}, err
	}

	loc := d.location
	if listener != nil && listener.TimeZone != "" {
		if l, lerr := time.LoadLocation(listener.TimeZone); lerr == nil {
			loc = l
		}
	}
	midnight, err := day.In(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, 0, 0, loc)
	if v := s.Param("OffsetMinutes"); v != "" {
		offset, _ := strconv.Atoi(v)
		start = start.Add(time.Duration(offset) * time.Minute)
	}
	return start, nil
}

// lookup returns the timings of date. The service sometimes files results
// under the neighboring day at some longitudes, so the reported date is
// checked and a mismatch is retried once with the following day.
func (o *Oracle) lookup(ctx context.Context, date string, lat, lon float64) (*oracleDay, error) {
	key := oracleKey{date: date, lat: lat, lon: lon, method: o.cfg.Method}
	o.mu.Lock()
	cached, ok := o.cache[key]
	o.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := o.fetch(ctx, date, lat, lon)
	if err != nil {
		return nil, err
	}
	if got := reportedDate(resp); got != date {
		next, err := day.Add(date, 1)
		if err != nil {
			return nil, err
		}
		o.logger.Warn().Str("requested", date).Str("reported", got).Msg("oracle answered for another day, retrying with next day")
		resp, err = o.fetch(ctx, next, lat, lon)
		if err != nil {
			return nil, err
		}
		if got := reportedDate(resp); got != date {
			telemetry.OracleRequestsTotal.WithLabelValues("day_mismatch").Inc()
			return nil, fmt.Errorf("%w: requested %s, reported %s", ErrDayMismatch, date, got)
		}
	}

	loc := o.cfg.Location
	if tz := resp.Data.Meta.Timezone; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	d := &oracleDay{timings: resp.Data.Timings, location: loc}

	o.mu.Lock()
	o.cache[key] = d
	o.mu.Unlock()
	return d, nil
}

func (o *Oracle) fetch(ctx context.Context, date string, lat, lon float64) (*oracleResponse, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	t, err := day.Parse(date)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("method", strconv.Itoa(o.cfg.Method))
	endpoint := fmt.Sprintf("%s/timings/%d?%s", strings.TrimRight(o.cfg.BaseURL, "/"), t.Unix(), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	res, err := o.client.Do(req)
	if err != nil {
		telemetry.OracleRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		telemetry.OracleRequestsTotal.WithLabelValues("bad_status").Inc()
		return nil, fmt.Errorf("oracle returned status %d", res.StatusCode)
	}
	var out oracleResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		telemetry.OracleRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	if out.Code != 0 && out.Code != http.StatusOK {
		telemetry.OracleRequestsTotal.WithLabelValues("bad_status").Inc()
		return nil, fmt.Errorf("oracle returned code %d", out.Code)
	}
	telemetry.OracleRequestsTotal.WithLabelValues("ok").Inc()
	return &out, nil
}

// reportedDate converts the service's DD-MM-YYYY into a calendar date.
func reportedDate(resp *oracleResponse) string {
	t, err := time.Parse("02-01-2006", resp.Data.Date.Gregorian.Date)
	if err != nil {
		return ""
	}
	return day.Format(t)
}
