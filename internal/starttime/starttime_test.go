package starttime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

func schedule(method string, params map[string]string) lineup.Schedule {
	return lineup.Schedule{Method: method, Params: params}
}

func TestStaticCalculate(t *testing.T) {
	tehran, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	c := NewStatic(tehran)

	got, err := c.Calculate(context.Background(), "2024-05-01", schedule("Static", map[string]string{"At": "08:30"}), nil)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	want := time.Date(2024, 5, 1, 8, 30, 0, 0, tehran)
	if !got.Equal(want) {
		t.Fatalf("start = %v, want %v", got, want)
	}

	got, err = c.Calculate(context.Background(), "2024-05-01",
		schedule("Static", map[string]string{"At": "08:30", "TimeZone": "UTC"}), nil)
	if err != nil {
		t.Fatalf("calculate with zone: %v", err)
	}
	if !got.Equal(time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("start = %v, want 08:30 UTC", got)
	}
}

func TestStaticValidate(t *testing.T) {
	c := NewStatic(time.UTC)
	cases := []struct {
		name    string
		params  map[string]string
		wantErr bool
	}{
		{"ok", map[string]string{"At": "06:00"}, false},
		{"seconds", map[string]string{"At": "06:00:30"}, false},
		{"missing", map[string]string{}, true},
		{"bad clock", map[string]string{"At": "25:99"}, true},
		{"bad zone", map[string]string{"At": "06:00", "TimeZone": "Nowhere/Land"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Validate(schedule("Static", tc.params))
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegistryUnknownMethod(t *testing.T) {
	r := NewRegistry()
	r.Register("Static", NewStatic(time.UTC))

	_, err := r.Calculate(context.Background(), "2024-05-01", schedule("Sundial", nil))
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("err = %v, want ErrUnknownMethod", err)
	}
	if err := r.Validate(schedule("Static", nil)); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("err = %v, want ErrMissingParam", err)
	}
	if got := r.Methods(); len(got) != 1 || got[0] != "Static" {
		t.Fatalf("methods = %v", got)
	}
}

// oracleServer answers every request with the date returned by report, which
// receives the requested date.
func oracleServer(t *testing.T, calls *int32, report func(requested time.Time) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("method") == "" {
			http.Error(w, "missing method", http.StatusBadRequest)
			return
		}
		unix, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/timings/"), 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requested := time.Unix(unix, 0).UTC()
		fmt.Fprintf(w, `{"code":200,"data":{"timings":{"Dhuhr":"12:03 (UTC)","Maghrib":"19:41"},`+
			`"date":{"gregorian":{"date":%q}},"meta":{"timezone":"UTC"}}}`, report(requested))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOracle(url string) *Oracle {
	return NewOracle(OracleConfig{BaseURL: url, Method: 7, Latitude: 35.7, Longitude: 51.4, RPS: 1000}, zerolog.Nop())
}

func TestOracleCalculateAndCache(t *testing.T) {
	var calls int32
	srv := oracleServer(t, &calls, func(req time.Time) string { return req.Format("02-01-2006") })
	o := newTestOracle(srv.URL)

	s := schedule("Oracle", map[string]string{"Event": "Dhuhr", "OffsetMinutes": "-5"})
	if err := o.Validate(s); err != nil {
		t.Fatalf("validate: %v", err)
	}
	got, err := o.Calculate(context.Background(), "2024-05-01", s, nil)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if want := time.Date(2024, 5, 1, 11, 58, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("start = %v, want %v", got, want)
	}

	if _, err := o.Calculate(context.Background(), "2024-05-01", schedule("Oracle", map[string]string{"Event": "Maghrib"}), nil); err != nil {
		t.Fatalf("second calculate: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("requests = %d, want 1 (cached)", n)
	}
}

func TestOracleRetriesNextDayOnMismatch(t *testing.T) {
	var calls int32
	// The service files each answer under the previous day.
	srv := oracleServer(t, &calls, func(req time.Time) string { return req.AddDate(0, 0, -1).Format("02-01-2006") })
	o := newTestOracle(srv.URL)

	got, err := o.Calculate(context.Background(), "2024-05-01", schedule("Oracle", map[string]string{"Event": "Maghrib"}), nil)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if want := time.Date(2024, 5, 1, 19, 41, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("start = %v, want %v", got, want)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("requests = %d, want 2", n)
	}
}

func TestOracleDayMismatch(t *testing.T) {
	var calls int32
	srv := oracleServer(t, &calls, func(time.Time) string { return "01-01-2000" })
	o := newTestOracle(srv.URL)

	_, err := o.Calculate(context.Background(), "2024-05-01", schedule("Oracle", map[string]string{"Event": "Dhuhr"}), nil)
	if !errors.Is(err, ErrDayMismatch) {
		t.Fatalf("err = %v, want ErrDayMismatch", err)
	}
}

func TestOracleBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	o := newTestOracle(srv.URL)

	if _, err := o.Calculate(context.Background(), "2024-05-01", schedule("Oracle", map[string]string{"Event": "Dhuhr"}), nil); err == nil {
		t.Fatal("expected error for unavailable oracle")
	}
}

func TestOracleValidate(t *testing.T) {
	o := newTestOracle("http://unused")
	if err := o.Validate(schedule("Oracle", nil)); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("err = %v, want ErrMissingParam", err)
	}
	if err := o.Validate(schedule("Oracle", map[string]string{"Event": "Dhuhr", "OffsetMinutes": "soon"})); err == nil {
		t.Fatal("expected error for non-numeric offset")
	}
}
