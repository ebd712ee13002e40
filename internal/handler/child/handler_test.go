package child

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/storage"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store := storage.NewMemoryStore()
	birth := time.Date(2018, 3, 10, 0, 0, 0, 0, time.UTC)
	admitted := time.Date(2024, 4, 29, 15, 0, 0, 0, time.UTC)
	_, err := store.SaveChild(context.Background(), child.Child{
		ID:                "c1",
		Name:              "Mina",
		BirthDate:         &birth,
		HospitalizedSince: &admitted,
		Puppet:            &child.Puppet{Name: "Tori", Mode: child.ModeAffectionate},
	})
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	New(store, now).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestProfile(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodGet, "/children/c1/mypage", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var profile child.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "Mina", profile.Name)
	assert.Equal(t, "6 years old", profile.Age)
	assert.Equal(t, "hospital day 3", profile.HospitalizationDay)
	assert.Equal(t, "Tori", profile.PuppetName)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/children/nobody/mypage", "").Code)
}

func TestPuppetUpdates(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodPatch, "/children/c1/puppet/name", `{"puppetName":"Bori"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"puppetName":"Bori"`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/children/c1/puppet/name", `{"puppetName":"  "}`).Code)

	resp = do(r, http.MethodPatch, "/children/c1/puppet/mode", `{"puppetMode":"energetic"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"puppetMode":"ENERGETIC"`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/children/c1/puppet/mode", `{"puppetMode":"sleepy"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/children/ghost/puppet/mode", `{"puppetMode":"ENERGETIC"}`).Code)
}

func TestRegisterMakesProfileAvailable(t *testing.T) {
	store := storage.NewMemoryStore()
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	New(store, now).RegisterRoutes(r)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/children/c7/mypage", "").Code)

	resp := do(r, http.MethodPut, "/children/c7", `{"name":"Joon","birthDate":"2019-01-15","hospitalizedSince":"2024-04-30","puppetName":"Tori","puppetMode":"energetic"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(r, http.MethodGet, "/children/c7/mypage", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var profile child.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "Joon", profile.Name)
	assert.Equal(t, "5 years old", profile.Age)
	assert.Equal(t, "hospital day 2", profile.HospitalizationDay)
	assert.Equal(t, "Tori", profile.PuppetName)
	assert.Equal(t, child.ModeEnergetic, profile.PuppetMode)

	resp = do(r, http.MethodPatch, "/children/c7/puppet/name", `{"puppetName":"Bori"}`)
	assert.Equal(t, http.StatusOK, resp.Code)

	saved, err := store.GetChild(context.Background(), "c7")
	require.NoError(t, err)
	assert.Equal(t, "Bori", saved.Puppet.Name)
}

func TestRegisterValidatesInput(t *testing.T) {
	r := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/children/c9", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/children/c9", `{"name":"Joon","birthDate":"15/01/2019"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/children/c9", `{"name":"Joon","puppetMode":"sleepy"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/children/c9/mypage", "").Code)
}
