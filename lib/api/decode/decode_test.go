package decode

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/groups", strings.NewReader(body))
}

func TestJSON(t *testing.T) {
	var gc entity.GroupCreate
	err := JSON(post(`{"group_id":" -100500 ","group_name":"trading","group_type":"group"}`), &gc)
	require.NoError(t, err)
	assert.Equal(t, "-100500", gc.GroupId, "binder normalization still runs")
}

func TestJSONRejectsUnknownFields(t *testing.T) {
	var gc entity.GroupCreate
	err := JSON(post(`{"group_id":"-1","group_name":"x","group_type":"group","bogus_field":1}`), &gc)
	assert.ErrorIs(t, err, entity.ErrValidation)

	var wc entity.WatchUserCreate
	err = JSON(post(`{"username":"alice","keyword":["btc"]}`), &wc)
	assert.ErrorIs(t, err, entity.ErrValidation, "misspelled field is rejected, not dropped")
}

func TestJSONRejectsMalformedBody(t *testing.T) {
	var req entity.CheckoutRequest
	assert.ErrorIs(t, JSON(post(`{"plan":`), &req), entity.ErrValidation)
	assert.ErrorIs(t, JSON(post(``), &req), entity.ErrValidation)
}

func TestJSONRunsBindValidation(t *testing.T) {
	var upd entity.RoleUpdate
	err := JSON(post(`{"role":"root"}`), &upd)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrValidation)
}
