package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/listmate/internal/model"
)

func TestLists(t *testing.T) {
	app := newTestApp(t, nil)
	owner := app.register(t, "owner@example.com", "owner")
	other := app.register(t, "other@example.com", "other")

	rr := app.do(t, http.MethodGet, "/api/lists", owner.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = app.do(t, http.MethodPost, "/api/lists", owner.Token, map[string]string{"name": "Groceries"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created model.List
	require.NoError(t, jsonDecode(rr, &created))
	assert.Equal(t, owner.User.ID, created.UserID)

	t.Run("blank name", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/api/lists", owner.Token, map[string]string{"name": " "})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/lists/"+created.ID, other.Token, nil).Code)
		assert.Equal(t, http.StatusForbidden,
			app.do(t, http.MethodPatch, "/api/lists/"+created.ID, other.Token, map[string]string{"name": "Mine now"}).Code)
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodDelete, "/api/lists/"+created.ID, other.Token, nil).Code)
	})

	t.Run("rename and delete", func(t *testing.T) {
		rr := app.do(t, http.MethodPatch, "/api/lists/"+created.ID, owner.Token, map[string]string{"name": "Errands"})
		require.Equal(t, http.StatusOK, rr.Code)
		var renamed model.List
		require.NoError(t, jsonDecode(rr, &renamed))
		assert.Equal(t, "Errands", renamed.Name)

		assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/api/lists/"+created.ID, owner.Token, nil).Code)
		assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/lists/"+created.ID, owner.Token, nil).Code)
	})
}
