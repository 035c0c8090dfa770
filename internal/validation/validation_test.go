package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedTags(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve validatorv10.ValidationErrors
	require.True(t, errors.As(err, &ve), "expected validation errors, got %v", err)
	out := map[string]string{}
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func TestDispatchRequest(t *testing.T) {
	v := New()

	ok := DispatchRequest{ItemRef: ItemRef{OrderID: 1001, LineItemID: 7}, ProductionType: "maille"}
	assert.NoError(t, v.Struct(ok))

	bad := DispatchRequest{ItemRef: ItemRef{OrderID: 1001}, ProductionType: "brodeuse"}
	tags := failedTags(t, v.Struct(bad))
	assert.Equal(t, "required", tags["line_item_id"])
	assert.Equal(t, "production_type", tags["production_type"])
}

func TestStatusRequest(t *testing.T) {
	v := New()
	ref := ItemRef{OrderID: 1, LineItemID: 2}

	assert.NoError(t, v.Struct(StatusRequest{ItemRef: ref, Status: "en_pause"}))
	assert.NoError(t, v.Struct(StatusRequest{ItemRef: ref, Status: "a_faire", Urgent: boolPtr(false)}))

	tags := failedTags(t, v.Struct(StatusRequest{ItemRef: ref, Status: "done"}))
	assert.Equal(t, "production_status", tags["status"])
}

func TestUrgentRequest_RequiresFlag(t *testing.T) {
	v := New()
	ref := ItemRef{OrderID: 1, LineItemID: 2}

	assert.NoError(t, v.Struct(UrgentRequest{ItemRef: ref, Urgent: boolPtr(false)}))
	tags := failedTags(t, v.Struct(UrgentRequest{ItemRef: ref}))
	assert.Equal(t, "required", tags["urgent"])
}

func TestAssignmentRequest(t *testing.T) {
	v := New()
	base := AssignmentRequest{ArticleID: "1001_7", TricoteuseID: "w-1", TricoteuseName: "Alice"}
	assert.NoError(t, v.Struct(base))

	bare := base
	bare.ArticleID = "7"
	assert.NoError(t, v.Struct(bare))

	malformed := base
	malformed.ArticleID = "1001-7"
	assert.Equal(t, "article_id", failedTags(t, v.Struct(malformed))["article_id"])

	todo := base
	todo.Status = "a_faire"
	assert.Equal(t, "ne", failedTags(t, v.Struct(todo))["status"])
}

func TestDelaiRequest(t *testing.T) {
	v := New()

	ok := DelaiRequest{JoursDelai: 21, JoursOuvrables: map[string]bool{"lundi": true, "samedi": false}}
	assert.NoError(t, v.Struct(ok))

	none := DelaiRequest{JoursDelai: 21, JoursOuvrables: map[string]bool{"lundi": false}}
	assert.Equal(t, "working_days", failedTags(t, v.Struct(none))["joursOuvrables"])

	unknown := DelaiRequest{JoursDelai: 21, JoursOuvrables: map[string]bool{"monday": true}}
	assert.Equal(t, "working_days", failedTags(t, v.Struct(unknown))["joursOuvrables"])

	zero := DelaiRequest{JoursOuvrables: map[string]bool{"lundi": true}}
	assert.Equal(t, "required", failedTags(t, v.Struct(zero))["joursDelai"])

	for _, n := range []int{-1, 366} {
		out := DelaiRequest{JoursDelai: n, JoursOuvrables: map[string]bool{"lundi": true}}
		assert.Equal(t, "jours_delai", failedTags(t, v.Struct(out))["joursDelai"], "joursDelai %d", n)
	}
	assert.NoError(t, v.Struct(DelaiRequest{JoursDelai: 365, JoursOuvrables: map[string]bool{"lundi": true}}))
}

func TestWorkerRequest(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(WorkerRequest{Name: "Bea", Color: "#ff8800", Gender: "f"}))

	tags := failedTags(t, v.Struct(WorkerRequest{Email: "nope", Color: "orange"}))
	assert.Equal(t, "required", tags["name"])
	assert.Equal(t, "email", tags["email"])
	assert.Equal(t, "hexcolor", tags["color"])
}

func TestSyncRequest(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(SyncRequest{}))
	assert.NoError(t, v.Struct(SyncRequest{Since: "2024-05-01"}))
	assert.Equal(t, "datetime", failedTags(t, v.Struct(SyncRequest{Since: "01/05/2024"}))["since"])
}

func TestBindAndValidate_WritesBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"order_id":`, "invalid_request_body"},
		{"invalid fields", `{"order_id":1,"line_item_id":2,"new_type":"x"}`, "validation_failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req RedispatchRequest
			err := BindAndValidate(c, &req, v)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}
