package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"photoDetails/details"
	"photoDetails/geo"
	"photoDetails/metadata"
	"photoDetails/preview"
	"photoDetails/web"
)

// Error codes carried in apiError.Code.
const (
	CodeInvalidSelection   = "INVALID_SELECTION"
	CodeMissingFile        = "MISSING_FILE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNoSelection        = "NO_SELECTION"
	CodeNoPendingRequest   = "NO_PENDING_REQUEST"
	CodePreviewUnavailable = "PREVIEW_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type healthResp struct {
	Ok        bool      `json:"ok"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type selectionResp struct {
	details.DisplayRecord
	LocationProvider string `json:"locationProvider"`
}

type locationReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	e := apiError{Code: code, Message: message}
	if err != nil {
		e.Details = err.Error()
	}
	writeJSON(w, status, e)
}

//Health Health Check controller
func health(version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResp{Ok: true, Version: version, Timestamp: time.Now()})
	})
}

// static serves the embedded widget page and its assets.
func static() http.Handler {
	fsys, err := web.GetFileSystem()
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(fsys))
}

func createSelection(d *Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := d.logger()

		if d.MaxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadSize)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "file is too large", err)
				return
			}
			writeError(w, http.StatusBadRequest, CodeBadRequest, "expected a multipart form", err)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeMissingFile, "no file selected", err)
			return
		}
		defer file.Close()

		payload, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "could not read file", err)
			return
		}

		contentType := hdr.Header.Get("Content-Type")
		if contentType == "" {
			contentType = metadata.DetectContentType(hdr.Filename, payload)
		}

		lastModified := time.Now()
		if s := r.FormValue("lastModified"); s != "" {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, CodeBadRequest, "lastModified must be unix milliseconds", err)
				return
			}
			lastModified = time.UnixMilli(ms)
		}

		sel, err := details.NewSelection(hdr.Filename, contentType, payload, lastModified)
		if err != nil {
			log.WithFields(logrus.Fields{"file": hdr.Filename, "contentType": contentType}).Warn("rejected selection")
			writeError(w, http.StatusUnsupportedMediaType, CodeInvalidSelection, details.RejectionMessage, nil)
			return
		}

		rec, _ := d.Session.Select(r.Context(), sel)
		writeJSON(w, http.StatusCreated, selectionResp{DisplayRecord: rec, LocationProvider: d.Provider})
	})
}

func currentRecord(d *Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := d.Session.Current()
		if !ok {
			writeError(w, http.StatusNotFound, CodeNoSelection, "no image selected", nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
}

func reportLocation(d *Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req locationReq
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body", err)
			return
		}
		if d.Client == nil {
			writeError(w, http.StatusNotFound, CodeNoPendingRequest, "no location request pending", nil)
			return
		}

		var err error
		switch {
		case req.Error != "":
			err = d.Client.Fail(id, req.Error)
		case req.Latitude != nil && req.Longitude != nil:
			err = d.Client.Deliver(id, details.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "latitude and longitude are required", nil)
			return
		}

		if err != nil {
			status, code, message := locationFailure(err)
			writeError(w, status, code, message, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"ok": true})
	})
}

// locationFailure maps a ClientLocator error to its HTTP response.
func locationFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, geo.ErrNoPendingRequest):
		return http.StatusNotFound, CodeNoPendingRequest, "no location request pending"
	case errors.Is(err, geo.ErrInvalidCoordinates):
		return http.StatusBadRequest, CodeBadRequest, "coordinates out of range"
	default:
		return http.StatusInternalServerError, CodeInternal, "could not report location"
	}
}

func previewImage(d *Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sel, ok := d.Session.Selection(mux.Vars(r)["id"])
		if !ok {
			writeError(w, http.StatusNotFound, CodeNoSelection, "selection not found", nil)
			return
		}

		size, quality := d.previewOpts()
		img, err := preview.Render(sel.Payload, size, quality)
		if err != nil {
			d.logger().WithError(err).WithField("selection", sel.ID).Warn("preview unavailable")
			writeError(w, http.StatusUnprocessableEntity, CodePreviewUnavailable, "preview unavailable", err)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	})
}
