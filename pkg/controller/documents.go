// Package controller serves configured document collections over HTTP.
package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/health"
	"github.com/nimburion/docmanager/pkg/manager"
	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Collections maps a collection name to its manager.
type Collections map[string]*manager.Manager[*document.Record]

// ListResponse is a page of documents, with group counts when requested.
type ListResponse struct {
	Items        []*document.Record   `json:"items"`
	Page         int                  `json:"page"`
	ItemsPerPage int                  `json:"items_per_page"`
	TotalCount   int64                `json:"total_count"`
	Groups       []manager.GroupCount `json:"groups,omitempty"`
}

// CountResponse is the body of the count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}

// GroupResponse is the body of the group endpoint.
type GroupResponse struct {
	Field  string               `json:"field"`
	Groups []manager.GroupCount `json:"groups"`
}

// DocumentController exposes read operations of every configured collection.
type DocumentController struct {
	collections     Collections
	maxItemsPerPage int
}

// NewDocumentController creates a controller. A positive maxItemsPerPage
// caps the page size a request may ask for.
func NewDocumentController(collections Collections, maxItemsPerPage int) *DocumentController {
	return &DocumentController{collections: collections, maxItemsPerPage: maxItemsPerPage}
}

// RegisterRoutes mounts the collection routes on r.
func (dc *DocumentController) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/collections/:name")
	g.GET("", dc.List)
	g.GET("/count", dc.Count)
	g.GET("/groups/:field", dc.Group)
	g.GET("/documents/:id", dc.Get)
}

func (dc *DocumentController) manager(c *gin.Context) (*manager.Manager[*document.Record], error) {
	name := c.Param("name")
	m, ok := dc.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownCollection, name)
	}
	return m, nil
}

// List serves a page of documents. The group parameter adds counts per
// value of that field over the same filters and free-text term.
func (dc *DocumentController) List(c *gin.Context) {
	m, err := dc.manager(c)
	if err != nil {
		Error(c, err)
		return
	}
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		Error(c, err)
		return
	}

	src := NewGinSource(c)
	opts := manager.ListOptions{Filters: filters}
	if capped, ok := dc.cappedItemsPerPage(m.Config(), src); ok {
		opts.ItemsPerPage = capped
	}
	page, err := m.Documents(c.Request.Context(), src, opts)
	if err != nil {
		Error(c, err)
		return
	}

	resp := ListResponse{
		Items:        page.Items,
		Page:         page.Page,
		ItemsPerPage: page.ItemsPerPage,
		TotalCount:   page.TotalCount,
	}
	if field := c.Query("group"); field != "" {
		match, err := manager.NewQuery().Where(filters...).Filter()
		if err != nil {
			Error(c, err)
			return
		}
		results, err := m.CountByGroup(c.Request.Context(), src, manager.NormalizeFieldName(field), manager.GroupOptions{Match: match})
		if err != nil {
			Error(c, err)
			return
		}
		resp.Groups = manager.SortedGroupCounts(results)
	}
	Success(c, resp)
}

// Count serves the number of documents matching the filters and the
// free-text term.
func (dc *DocumentController) Count(c *gin.Context) {
	m, err := dc.manager(c)
	if err != nil {
		Error(c, err)
		return
	}
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		Error(c, err)
		return
	}
	n, err := m.Count(c.Request.Context(), NewGinSource(c), manager.CountOptions{Filters: filters, Query: true})
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, CountResponse{Count: n})
}

// Group serves document counts per value of a field, largest first. limit
// keeps the top groups only.
func (dc *DocumentController) Group(c *gin.Context) {
	m, err := dc.manager(c)
	if err != nil {
		Error(c, err)
		return
	}
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		Error(c, err)
		return
	}
	match, err := manager.NewQuery().Where(filters...).Filter()
	if err != nil {
		Error(c, err)
		return
	}

	opts := manager.GroupOptions{
		Match: match,
		Sort:  []document.Sort{{Field: "count", Order: document.SortDesc}, {Field: "_id", Order: document.SortAsc}},
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			Error(c, fmt.Errorf("%w: limit must be a non-negative integer", errInvalidFilter))
			return
		}
		opts.Limit = limit
	}

	field := manager.NormalizeFieldName(c.Param("field"))
	results, err := m.CountByGroup(c.Request.Context(), NewGinSource(c), field, opts)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, GroupResponse{Field: field, Groups: manager.SortedGroupCounts(results)})
}

// Get serves one document by identifier. Filters narrow the lookup.
func (dc *DocumentController) Get(c *gin.Context) {
	m, err := dc.manager(c)
	if err != nil {
		Error(c, err)
		return
	}
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		Error(c, err)
		return
	}
	doc, err := m.Find(c.Request.Context(), c.Param("id"), filters...)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, doc)
}

// cappedItemsPerPage returns the cap when the request asks for more.
func (dc *DocumentController) cappedItemsPerPage(cfg manager.Config, src GinSource) (int, bool) {
	if dc.maxItemsPerPage <= 0 || !cfg.Accepts(manager.ParamItemsPerPage) {
		return 0, false
	}
	raw, ok := src.Get(cfg.SourceKey(manager.ParamItemsPerPage), nil).(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= dc.maxItemsPerPage {
		return 0, false
	}
	return dc.maxItemsPerPage, true
}

// HealthHandler reports the aggregated health of reg: 200 when healthy,
// 503 otherwise.
func HealthHandler(reg *health.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := reg.Check(c.Request.Context())
		status := http.StatusOK
		if !res.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, res)
	}
}
