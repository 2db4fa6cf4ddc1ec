package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"beebi/backend/internal/analytics"
	"beebi/backend/internal/report"
)

type analyzerInfo struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func (a *App) listAnalyzers(c *gin.Context) {
	names := analytics.Names()
	items := make([]analyzerInfo, 0, len(names))
	for _, name := range names {
		domain, _ := analytics.DomainOf(name)
		items = append(items, analyzerInfo{Name: name, Domain: strings.ToLower(string(domain))})
	}
	c.JSON(http.StatusOK, gin.H{"analyzers": items})
}

func (a *App) runAnalyzer(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.ToLower(strings.TrimSpace(c.Param("name")))
	result, ok := a.engine.Run(c.Request.Context(), name, q)
	if !ok {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Unknown analyzer %q", name))
		return
	}
	a.publishAlerts(c, result)
	c.JSON(http.StatusOK, result)
}

func (a *App) domainReport(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	domain, ok := report.ParseDomain(c.Param("domain"))
	if !ok {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Unknown report domain %q", c.Param("domain")))
		return
	}
	result, err := report.Build(c.Request.Context(), a.engine, domain, q)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for _, r := range result.Reports {
		a.publishAlerts(c, r)
	}
	c.JSON(http.StatusOK, result)
}

// parseQuery reads the analyzer parameters. Absent parameters stay at their zero value.
func parseQuery(c *gin.Context) (analytics.Query, error) {
	q := analytics.Query{SubjectID: strings.TrimSpace(c.Query("subject_id"))}

	if raw, ok := c.GetQuery("days"); ok {
		days, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return analytics.Query{}, errors.New("days must be an integer")
		}
		q.Days = &days
	}
	if raw, ok := c.GetQuery("by_subject"); ok {
		bySubject, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return analytics.Query{}, errors.New("by_subject must be true or false")
		}
		q.BySubject = bySubject
	}
	if raw, ok := c.GetQuery("bins"); ok {
		bins, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || bins < 1 {
			return analytics.Query{}, errors.New("bins must be a positive integer")
		}
		q.Bins = bins
	}
	if raw, ok := c.GetQuery("max_interval_hours"); ok {
		hours, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || hours <= 0 {
			return analytics.Query{}, errors.New("max_interval_hours must be a positive number")
		}
		q.MaxIntervalHours = hours
	}
	if raw, ok := c.GetQuery("big_poo_threshold"); ok {
		threshold, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || threshold < 1 {
			return analytics.Query{}, errors.New("big_poo_threshold must be a positive integer")
		}
		q.BigPooThreshold = threshold
	}
	return q, nil
}
