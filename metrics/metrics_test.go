package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	ObservePoll("vatsim", 120*time.Millisecond, nil)
	ObservePoll("vatsim", time.Second, errors.New("boom"))
	AddLeaves("pilots", 3)
	SetActive("controllers", 4)
	IncAccountingFailure()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`dataparser_poll_cycles_total{cycle="vatsim",result="ok"} 1`,
		`dataparser_poll_cycles_total{cycle="vatsim",result="error"} 1`,
		`dataparser_leave_notifications_total{class="pilots"} 3`,
		`dataparser_active_entities{class="controllers"} 4`,
		`dataparser_accounting_failures_total 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
