package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/mixedstack/tracer/internal/errorutil"
	"github.com/mixedstack/tracer/internal/frame"
)

type (
	MergeRequest struct {
		PythonStacks []frame.Envelope `json:"python_stacks"`
		NativeStacks []frame.Envelope `json:"native_stacks"`
	}

	MergeResponse struct {
		Frames []frame.Envelope `json:"frames"`
	}
)

func (e *environment) postMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req MergeRequest
	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal stacks"
	err = json.Unmarshal(body, &req)
	s.Finish()
	if err != nil {
		if errors.Is(err, errorutil.ErrDataIntegrity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	mergeID := uuid.New().String()
	if hub != nil {
		hub.Scope().SetContext("Stacks metadata", map[string]interface{}{
			"merge_id":            mergeID,
			"python_frames_count": len(req.PythonStacks),
			"native_frames_count": len(req.NativeStacks),
			"size":                len(body),
		})
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Merge stacks"
	merged := e.merger.Merge(frame.Unwrap(req.PythonStacks), frame.Unwrap(req.NativeStacks))
	s.Finish()

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal merged stack"
	b, err := json.Marshal(MergeResponse{Frames: frame.Envelopes(merged)})
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if e.mergedStacksWriter != nil {
		s = sentry.StartSpan(ctx, "processing")
		s.Description = "Send merged stack to Kafka"
		err = e.mergedStacksWriter.WriteMessages(ctx, kafka.Message{
			Key:   []byte(mergeID),
			Value: b,
		})
		s.Finish()
		if err != nil {
			// Delivery is best effort, the response is still served.
			if hub != nil {
				hub.CaptureException(err)
			}
			log.Err(err).Str("merge_id", mergeID).Msg("failed to write merged stack to kafka")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (e *environment) getBoundaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	b, err := json.Marshal(e.merger.Rules())
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
