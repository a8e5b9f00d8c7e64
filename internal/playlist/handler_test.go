package playlist

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/media-library-system/pkg/database"
)

// identityStub plays the role of the auth middleware for handler tests.
func identityStub(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	}
}

func newHandlerTest(t *testing.T) (*gin.Engine, *database.DB, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	owner := seedUser(t, db, "owner")
	handler := NewHandler(NewService(db, nil))

	router := gin.New()
	group := router.Group("/api/v1", identityStub(owner))
	handler.RegisterRoutes(group)
	return router, db, owner
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateAndGet(t *testing.T) {
	router, _, _ := newHandlerTest(t)

	w := do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Road Trip"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Playlist struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			TrackCount int    `json:"trackCount"`
		} `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Road Trip", created.Playlist.Name)
	assert.Zero(t, created.Playlist.TrackCount)

	w = do(t, router, http.MethodGet, "/api/v1/playlists/"+created.Playlist.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Tracks []json.RawMessage `json:"tracks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Tracks)
}

func TestHandler_CreateMissingName(t *testing.T) {
	router, _, _ := newHandlerTest(t)

	w := do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AddTrack(t *testing.T) {
	router, db, _ := newHandlerTest(t)
	trackID := seedTrack(t, db, "song", 180)

	w := do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Mix"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Playlist struct {
			ID string `json:"id"`
		} `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, router, http.MethodPost, "/api/v1/playlists/"+created.Playlist.ID+"/tracks",
		gin.H{"trackId": trackID.String()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var added struct {
		Track struct {
			ID         string `json:"id"`
			IsFavorite bool   `json:"isFavorite"`
		} `json:"track"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, trackID.String(), added.Track.ID)

	// Same track twice is a conflict.
	w = do(t, router, http.MethodPost, "/api/v1/playlists/"+created.Playlist.ID+"/tracks",
		gin.H{"trackId": trackID.String()})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in playlist")
}

func TestHandler_AddTrack_BadIDs(t *testing.T) {
	router, db, _ := newHandlerTest(t)
	trackID := seedTrack(t, db, "song", 180)

	// Malformed playlist id is indistinguishable from a missing playlist.
	w := do(t, router, http.MethodPost, "/api/v1/playlists/not-a-uuid/tracks",
		gin.H{"trackId": trackID.String()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Mix"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Playlist struct {
			ID string `json:"id"`
		} `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, router, http.MethodPost, "/api/v1/playlists/"+created.Playlist.ID+"/tracks",
		gin.H{"trackId": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/playlists/"+created.Playlist.ID+"/tracks", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/playlists/"+created.Playlist.ID+"/tracks",
		gin.H{"trackId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "track not found")
}

func TestHandler_RemoveTrack(t *testing.T) {
	router, db, _ := newHandlerTest(t)
	trackID := seedTrack(t, db, "song", 180)

	w := do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Mix"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Playlist struct {
			ID string `json:"id"`
		} `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/v1/playlists/" + created.Playlist.ID

	w = do(t, router, http.MethodPost, base+"/tracks", gin.H{"trackId": trackID.String()})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodDelete, base+"/tracks/"+trackID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Removing a non-member, even a malformed id, still succeeds.
	w = do(t, router, http.MethodDelete, base+"/tracks/"+trackID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodDelete, base+"/tracks/not-a-uuid", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// But a foreign playlist still reads as not found.
	w = do(t, router, http.MethodDelete, "/api/v1/playlists/"+uuid.NewString()+"/tracks/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RenameAndDelete(t *testing.T) {
	router, _, _ := newHandlerTest(t)

	w := do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Old"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Playlist struct {
			ID string `json:"id"`
		} `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/v1/playlists/" + created.Playlist.ID

	w = do(t, router, http.MethodPut, base, gin.H{"name": "New"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"New"`)

	w = do(t, router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListOnlyOwn(t *testing.T) {
	router, db, _ := newHandlerTest(t)

	// Another user's playlist must not leak into the listing.
	stranger := seedUser(t, db, "stranger")
	strangerRouter := gin.New()
	strangerGroup := strangerRouter.Group("/api/v1", identityStub(stranger))
	NewHandler(NewService(db, nil)).RegisterRoutes(strangerGroup)

	w := do(t, strangerRouter, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Theirs"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/playlists", gin.H{"name": "Mine"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/playlists", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Playlists []struct {
			Name string `json:"name"`
		} `json:"playlists"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Playlists, 1)
	assert.Equal(t, "Mine", listed.Playlists[0].Name)
}
