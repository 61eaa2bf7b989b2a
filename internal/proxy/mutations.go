package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/resilio"
	"resilio-dashboard/internal/store"
)

const mockAgentName = "Mock Agent"

// CreateJob validates the draft before anything else. In mock mode the job
// is appended to the store; otherwise it is posted upstream and upstream
// errors are reported as-is, never replaced by sample data.
func (s *Service) CreateJob(ctx context.Context, req model.CreateJobRequest) Result {
	req.Normalize()
	if err := req.Validate(); err != nil {
		var fields model.FieldErrors
		if errors.As(err, &fields) {
			return Result{
				Status: http.StatusBadRequest,
				Body:   model.ErrorResponse{Error: "Invalid job request", Fields: fields, Status: http.StatusBadRequest},
			}
		}
		return failure(http.StatusBadRequest, err.Error(), nil)
	}

	if s.mode == ModeMock {
		return s.createMockJob(ctx, req)
	}

	resp, err := s.upstream.CreateJob(ctx, req)
	if err != nil {
		logging.Errorf("create job %q failed: %v", req.Name, err)
		return failure(http.StatusInternalServerError, err.Error(), nil)
	}

	if !resp.OK() {
		message, details := upstreamError(resp.Status, resp.Body)
		logging.Warnf("upstream rejected job %q with status %d: %s", req.Name, resp.Status, message)
		return failure(resp.Status, message, details)
	}

	var body any = model.Response{Method: http.MethodPost, Path: resilio.PathJobs, Status: resp.Status}
	if decoded, err := decodeJSON(resp.Body); err == nil {
		body = decoded
	}
	return Result{Status: resp.Status, Body: body}
}

func (s *Service) createMockJob(ctx context.Context, req model.CreateJobRequest) Result {
	now := s.now()
	job := model.Job{
		ID:          s.newID(),
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Status:      model.JobQueued,
		Progress:    0,
		StartTime:   now,
		AgentName:   mockAgentName,
		Groups:      req.Groups,
		Agents:      req.Agents,
	}

	first := req.Agents[0]
	job.AgentID = strconv.FormatInt(first.ID, 10)
	if name, found := s.fixtures.AgentName(job.AgentID); found {
		job.AgentName = name
	}

	if err := s.jobs.Add(ctx, job); err != nil {
		logging.Errorf("store mock job %s: %v", job.ID, err)
		return failure(http.StatusInternalServerError, "Failed to create job", err.Error())
	}
	logging.Infof("created mock job %s (%s)", job.ID, job.Name)

	return Result{
		Status: http.StatusCreated,
		Body: model.Response{
			Data:   model.JobResult{Job: job},
			Method: http.MethodPost,
			Path:   resilio.PathJobs,
			Status: http.StatusCreated,
		},
	}
}

// DeleteJob removes a job. Upstream success bodies that are empty or not
// JSON are reported as {id, deleted:true}.
func (s *Service) DeleteJob(ctx context.Context, id string) Result {
	path := resilio.JobPath(id)

	if s.mode == ModeMock {
		job, err := s.jobs.Delete(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return errJobNotFound
		}
		if err != nil {
			logging.Errorf("delete mock job %s: %v", id, err)
			return failure(http.StatusInternalServerError, "Failed to delete job", err.Error())
		}
		logging.Infof("deleted mock job %s", id)
		return ok(http.MethodDelete, path, model.JobResult{Job: job})
	}

	resp, err := s.upstream.DeleteJob(ctx, id)
	if err != nil {
		logging.Errorf("delete job %s failed: %v", id, err)
		return failure(http.StatusInternalServerError, "Failed to delete job", nil)
	}
	if !resp.OK() {
		logging.Warnf("upstream refused to delete job %s: status %d", id, resp.Status)
		return failure(http.StatusInternalServerError, "Failed to delete job", nil)
	}

	deleted := model.DeleteResult{ID: id, Deleted: true}
	if !isJSON(resp.ContentType) || len(bytes.TrimSpace(resp.Body)) == 0 {
		return ok(http.MethodDelete, path, deleted)
	}
	decoded, err := decodeJSON(resp.Body)
	if err != nil {
		return ok(http.MethodDelete, path, deleted)
	}
	return ok(http.MethodDelete, path, decoded)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// upstreamError picks the message for a rejected mutation. A JSON body is
// returned as details; a body that does not parse yields the status text
// and no details.
func upstreamError(status int, body []byte) (string, any) {
	fallback := fmt.Sprintf("HTTP error! status: %d", status)

	details, err := decodeJSON(body)
	if err != nil {
		if text := http.StatusText(status); text != "" {
			return text, nil
		}
		return fallback, nil
	}

	if obj, isObj := details.(map[string]any); isObj {
		for _, key := range []string{"message", "error"} {
			if msg, isString := obj[key].(string); isString && msg != "" {
				return msg, details
			}
		}
	}
	return fallback, details
}
