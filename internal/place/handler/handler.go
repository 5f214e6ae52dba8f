package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/location"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place/store"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/storage"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
)

// Snapshotter exports the current place list.
type Snapshotter interface {
	Write(ctx context.Context, places []place.Record) (storage.Snapshot, error)
}

// Handler serves the place list over HTTP.
type Handler struct {
	store        *store.Store
	auth         place.AuthProvider
	location     place.LocationProvider
	autocomplete place.PlaceAutocompleteProvider
	snapshots    Snapshotter
	loadOnRead   bool
}

type Option func(*Handler)

func WithLocation(lp place.LocationProvider) Option {
	return func(h *Handler) { h.location = lp }
}

func WithAutocomplete(ap place.PlaceAutocompleteProvider) Option {
	return func(h *Handler) { h.autocomplete = ap }
}

func WithSnapshots(s Snapshotter) Option {
	return func(h *Handler) { h.snapshots = s }
}

// LoadOnRead makes every list request reload from the backend first.
func LoadOnRead(on bool) Option {
	return func(h *Handler) { h.loadOnRead = on }
}

func New(s *store.Store, auth place.AuthProvider, opts ...Option) *Handler {
	h := &Handler{store: s, auth: auth}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts the place routes on rg, normally /api/places.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/reload", h.Reload)
	rg.POST("/draft", h.Draft)
	rg.GET("/autocomplete", h.Autocomplete)
	rg.POST("/snapshot", h.Snapshot)
	rg.GET("/:index", h.Get)
	rg.PUT("/:index", h.Update)
}

type entry struct {
	Index int          `json:"index"`
	Place place.Record `json:"place"`
}

// recordInput is what a client may set on a place; the posting user and
// document id are owned by the store.
type recordInput struct {
	Name       string           `json:"name"`
	Address    string           `json:"address"`
	Coordinate place.Coordinate `json:"coordinate"`
}

func (in recordInput) applyTo(r place.Record) place.Record {
	r.Name = in.Name
	r.Address = in.Address
	r.Coordinate = in.Coordinate
	return r
}

// List returns every place with its list index.
func (h *Handler) List(c *gin.Context) {
	stale := false
	if h.loadOnRead {
		if err := h.store.Load(c.Request.Context()); err != nil {
			stale = true
		}
	}
	places := h.store.Places()
	out := make([]entry, 0, len(places))
	for i, p := range places {
		out = append(out, entry{Index: i, Place: p})
	}
	resp := gin.H{"places": out}
	if stale {
		resp["stale"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one place and the map region to show around it.
func (h *Handler) Get(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	rec, err := h.store.Get(i)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": i, "place": rec, "region": place.RegionFor(rec)})
}

// Create appends a new place to the list and saves it.
func (h *Handler) Create(c *gin.Context) {
	var in recordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, signedIn := h.currentUser(c)
	i, rec, err := h.store.Create(c.Request.Context(), in.applyTo(place.Record{}), user, signedIn)
	h.respond(c, i, rec, err, http.StatusCreated)
}

// Update replaces the place at index with the edited copy and saves it.
func (h *Handler) Update(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	var in recordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, signedIn := h.currentUser(c)
	rec, err := h.store.Update(c.Request.Context(), i, in.applyTo, user, signedIn)
	h.respond(c, i, rec, err, http.StatusOK)
}

func (h *Handler) currentUser(c *gin.Context) (string, bool) {
	if h.auth == nil {
		return "", false
	}
	return h.auth.CurrentUser(c.Request.Context())
}

func (h *Handler) respond(c *gin.Context, i int, rec place.Record, err error, okStatus int) {
	if errors.Is(err, store.ErrIndexOutOfRange) {
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
		return
	}
	if err != nil {
		// the local list keeps the edit
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "index": i, "place": rec})
		return
	}
	c.JSON(okStatus, entry{Index: i, Place: rec})
}

// Reload replaces the list with the backend's current contents.
func (h *Handler) Reload(c *gin.Context) {
	if err := h.store.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.store.Len()})
}

type draftRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Authorization string   `json:"authorization"`
}

// Draft prefills a new place from the device location. The draft is not
// added to the list; the client posts it back once edited.
func (h *Handler) Draft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := location.ParseStatus(req.Authorization)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := location.CheckStatus(status); err != nil {
		var perr *location.PermissionError
		if errors.As(err, &perr) {
			c.JSON(http.StatusForbidden, gin.H{"error": perr.Title, "message": perr.Message, "status": perr.Status})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if h.location == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "location lookup not configured"})
		return
	}
	coord := place.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	draft, err := place.DraftFromLocation(c.Request.Context(), h.location, coord)
	if err != nil {
		logger.Warnf("places: reverse geocode failed for %v: %v", coord, err)
		c.JSON(http.StatusOK, gin.H{"place": draft, "region": place.RegionFor(draft), "geocodeError": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"place": draft, "region": place.RegionFor(draft)})
}

// Autocomplete returns draft records for places matching q.
func (h *Handler) Autocomplete(c *gin.Context) {
	if h.autocomplete == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "autocomplete not configured"})
		return
	}
	res, err := h.autocomplete.Autocomplete(c.Request.Context(), c.Query("q"))
	if errors.Is(err, place.ErrAutocompleteCancelled) {
		c.JSON(http.StatusOK, gin.H{"suggestions": []place.Record{}, "cancelled": true})
		return
	}
	if err != nil {
		logger.Errorf("places: autocomplete failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	out := make([]place.Record, 0, len(res))
	for _, s := range res {
		out = append(out, place.DraftFromSuggestion(s))
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

// Snapshot exports the current list to object storage.
func (h *Handler) Snapshot(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}
	snap, err := h.snapshots.Write(c.Request.Context(), h.store.Places())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func indexParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil || i < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return 0, false
	}
	return i, true
}
