package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"deployment-tracker/internal/deployments"
	"deployment-tracker/internal/reporting"

	"github.com/gin-gonic/gin"
)

// ListDeployments returns every record in sheet order, skipping empty rows.
func (h Handlers) ListDeployments(c *gin.Context) {
	recs, err := h.Deployments.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]deployments.Record, 0, len(recs))
	for _, r := range recs {
		if isBlank(r) {
			continue
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetDeployment(c *gin.Context) {
	rec, err := h.Deployments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateDeployment appends a record; an identifier is generated when absent.
func (h Handlers) CreateDeployment(c *gin.Context) {
	var rec deployments.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Deployments.Create(c.Request.Context(), rec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deploymentId": created.ID})
}

// updateRequest is the current PUT shape. A body without deploymentData is
// treated as a bare record and updated in full.
type updateRequest struct {
	DeploymentData *deployments.Record `json:"deploymentData"`
	ChangedFields  *[]string           `json:"changedFields"`
}

// UpdateDeployment writes a partial update when changedFields is present
// (an empty list rewrites the row unchanged) and a full update otherwise.
func (h Handlers) UpdateDeployment(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	var req updateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.DeploymentData == nil {
		req.ChangedFields = nil
		var legacy deployments.Record
		if err := json.Unmarshal(raw, &legacy); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		req.DeploymentData = &legacy
	}

	var res deployments.UpdateResult
	if req.ChangedFields != nil {
		res, err = h.Deployments.UpdateFields(c.Request.Context(), *req.DeploymentData, *req.ChangedFields)
	} else {
		res, err = h.Deployments.UpdateFull(c.Request.Context(), *req.DeploymentData)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DashboardSummary aggregates records. Query: from, to (YYYY-MM-DD), assigned_to.
func (h Handlers) DashboardSummary(c *gin.Context) {
	var req reporting.SummaryRequest
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &req.Range.From}, {"to", &req.Range.To}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": p.name + " must be YYYY-MM-DD"})
			return
		}
		*p.dst = t
	}
	req.AssignedTo = c.Query("assigned_to")

	sum, err := h.Reports.Summary(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func isBlank(r deployments.Record) bool {
	if r.ID != "" {
		return false
	}
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}
