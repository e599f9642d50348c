// Package gcptest serves an in-memory stand-in for the parts of the Cloud
// Storage and Storage Transfer JSON APIs the transfer tool uses.
package gcptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	storage "google.golang.org/api/storage/v1"
	storagetransfer "google.golang.org/api/storagetransfer/v1"
)

// Request is a call the fake received
type Request struct {
	Method string
	Route  string
	Path   string
	Query  map[string]string
}

// Server is a fake Google API backend
type Server struct {
	*httptest.Server

	// ServiceAccount is returned by googleServiceAccounts.get
	ServiceAccount string
	// PageSize limits how many jobs one list page returns, 0 means all
	PageSize int

	mu         sync.Mutex
	nextID     int
	jobs       []*storagetransfer.TransferJob
	buckets    map[string]*storage.Bucket
	acls       map[string]map[string]*storage.BucketAccessControl
	requests   []Request
	failRoutes map[string]int
	failCreate map[string]int
}

// NewServer starts a fake backend. Close it when done.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		ServiceAccount: "project-123@storage-transfer-service.iam.gserviceaccount.com",
		nextID:         1,
		buckets:        make(map[string]*storage.Bucket),
		acls:           make(map[string]map[string]*storage.BucketAccessControl),
		failRoutes:     make(map[string]int),
		failCreate:     make(map[string]int),
	}

	router := gin.New()
	router.Use(s.record)

	router.GET("/v1/transferJobs", s.listJobs)
	router.POST("/v1/transferJobs", s.createJob)
	router.PATCH("/v1/transferJobs/:id", s.patchJob)
	router.GET("/v1/googleServiceAccounts/:project", s.getServiceAccount)

	router.GET("/storage/v1/b/:bucket", s.getBucket)
	router.POST("/storage/v1/b", s.insertBucket)
	router.GET("/storage/v1/b/:bucket/acl/:entity", s.getACL)
	router.POST("/storage/v1/b/:bucket/acl", s.insertACL)

	s.Server = httptest.NewServer(router)
	return s
}

// TransferEndpoint is the base path for the Storage Transfer client
func (s *Server) TransferEndpoint() string { return s.URL + "/" }

// StorageEndpoint is the base path for the Storage client
func (s *Server) StorageEndpoint() string { return s.URL + "/storage/v1/" }

// FailOn makes every request to route ("METHOD /path/:param") answer with code
func (s *Server) FailOn(route string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRoutes[route] = code
}

// FailCreateFor makes job creation for the given source bucket answer with code
func (s *Server) FailCreateFor(bucket string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[bucket] = code
}

// AddJob seeds an existing transfer job and returns its name
func (s *Server) AddJob(job *storagetransfer.TransferJob) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Name == "" {
		job.Name = s.newJobName()
	}
	s.jobs = append(s.jobs, job)
	return job.Name
}

// AddBucket seeds an existing bucket
func (s *Server) AddBucket(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[name] = &storage.Bucket{Name: name}
}

// AddACL seeds an existing bucket ACL entry
func (s *Server) AddACL(bucket, entity, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addACL(bucket, &storage.BucketAccessControl{Bucket: bucket, Entity: entity, Role: role})
}

// Jobs returns a snapshot of the stored jobs
func (s *Server) Jobs() []*storagetransfer.TransferJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*storagetransfer.TransferJob(nil), s.jobs...)
}

// Bucket returns a stored bucket or nil
func (s *Server) Bucket(name string) *storage.Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[name]
}

// ACL returns a stored ACL entry or nil
func (s *Server) ACL(bucket, entity string) *storage.BucketAccessControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acls[bucket][entity]
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo filters Requests by route
func (s *Server) RequestsTo(route string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()
	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Route:  route,
		Path:   c.Request.URL.Path,
		Query:  query,
	})
	code, fail := s.failRoutes[route]
	s.mu.Unlock()

	if fail {
		abort(c, code, "injected failure")
		return
	}
	c.Next()
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": gin.H{
			"code":    code,
			"message": msg,
		},
	})
}

type listFilter struct {
	ProjectID   string   `json:"projectId"`
	JobStatuses []string `json:"jobStatuses"`
}

func (s *Server) listJobs(c *gin.Context) {
	var filter listFilter
	if err := json.Unmarshal([]byte(c.Query("filter")), &filter); err != nil || filter.ProjectID == "" {
		abort(c, http.StatusBadRequest, "filter must name a projectId")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*storagetransfer.TransferJob
	for _, job := range s.jobs {
		if job.ProjectId != filter.ProjectID {
			continue
		}
		if len(filter.JobStatuses) > 0 && !contains(filter.JobStatuses, job.Status) {
			continue
		}
		matched = append(matched, job)
	}

	start := 0
	if tok := c.Query("pageToken"); tok != "" {
		if _, err := fmt.Sscanf(tok, "page-%d", &start); err != nil {
			abort(c, http.StatusBadRequest, "bad page token")
			return
		}
	}
	end := len(matched)
	next := ""
	if s.PageSize > 0 && start+s.PageSize < len(matched) {
		end = start + s.PageSize
		next = fmt.Sprintf("page-%d", end)
	}
	if start > len(matched) {
		start = len(matched)
	}

	c.JSON(http.StatusOK, &storagetransfer.ListTransferJobsResponse{
		TransferJobs:  matched[start:end],
		NextPageToken: next,
	})
}

func (s *Server) createJob(c *gin.Context) {
	var job storagetransfer.TransferJob
	if err := c.ShouldBindJSON(&job); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.TransferSpec != nil && job.TransferSpec.AwsS3DataSource != nil {
		if code, ok := s.failCreate[job.TransferSpec.AwsS3DataSource.BucketName]; ok {
			abort(c, code, "injected create failure")
			return
		}
	}

	job.Name = s.newJobName()
	s.jobs = append(s.jobs, &job)
	c.JSON(http.StatusOK, &job)
}

func (s *Server) patchJob(c *gin.Context) {
	var req storagetransfer.UpdateTransferJobRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TransferJob == nil {
		abort(c, http.StatusBadRequest, "invalid update request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := "transferJobs/" + c.Param("id")
	for _, job := range s.jobs {
		if job.Name != name {
			continue
		}
		for _, field := range strings.Split(req.UpdateTransferJobFieldMask, ",") {
			switch strings.TrimSpace(field) {
			case "transferSpec", "transfer_spec":
				job.TransferSpec = req.TransferJob.TransferSpec
			case "status":
				job.Status = req.TransferJob.Status
			case "description":
				job.Description = req.TransferJob.Description
			case "schedule":
				job.Schedule = req.TransferJob.Schedule
			}
		}
		c.JSON(http.StatusOK, job)
		return
	}
	abort(c, http.StatusNotFound, "transfer job not found")
}

func (s *Server) getServiceAccount(c *gin.Context) {
	c.JSON(http.StatusOK, &storagetransfer.GoogleServiceAccount{
		AccountEmail: s.ServiceAccount,
	})
}

func (s *Server) getBucket(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[c.Param("bucket")]
	if !ok {
		abort(c, http.StatusNotFound, "bucket not found")
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) insertBucket(c *gin.Context) {
	var b storage.Bucket
	if err := c.ShouldBindJSON(&b); err != nil || b.Name == "" {
		abort(c, http.StatusBadRequest, "invalid bucket")
		return
	}
	if c.Query("project") == "" {
		abort(c, http.StatusBadRequest, "project is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[b.Name]; exists {
		abort(c, http.StatusConflict, "bucket already exists")
		return
	}
	s.buckets[b.Name] = &b
	c.JSON(http.StatusOK, &b)
}

func (s *Server) getACL(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acl, ok := s.acls[c.Param("bucket")][c.Param("entity")]
	if !ok {
		abort(c, http.StatusNotFound, "acl not found")
		return
	}
	c.JSON(http.StatusOK, acl)
}

func (s *Server) insertACL(c *gin.Context) {
	var acl storage.BucketAccessControl
	if err := c.ShouldBindJSON(&acl); err != nil || acl.Entity == "" {
		abort(c, http.StatusBadRequest, "invalid acl")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := c.Param("bucket")
	if _, ok := s.buckets[bucket]; !ok {
		abort(c, http.StatusNotFound, "bucket not found")
		return
	}
	acl.Bucket = bucket
	s.addACL(bucket, &acl)
	c.JSON(http.StatusOK, &acl)
}

func (s *Server) addACL(bucket string, acl *storage.BucketAccessControl) {
	if s.acls[bucket] == nil {
		s.acls[bucket] = make(map[string]*storage.BucketAccessControl)
	}
	s.acls[bucket][acl.Entity] = acl
}

func (s *Server) newJobName() string {
	name := fmt.Sprintf("transferJobs/%d", s.nextID)
	s.nextID++
	return name
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
