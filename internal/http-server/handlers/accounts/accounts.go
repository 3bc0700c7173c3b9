package accounts

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/entity"
	"tgmon/lib/api/cont"
	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Accounts(tenantId string) ([]*entity.Account, error)
	AccountHealth(tenantId string) []entity.AccountHealth
	UploadAccount(tenantId, name, sessionName string, session []byte, metadataName string, metadata []byte) (*entity.Account, error)
	ActivateAccount(tenantId, id string) (*entity.Account, error)
	DeactivateAccount(tenantId, id string) (*entity.Account, error)
	DeleteAccount(tenantId, id string) error
}

// Uploaded artifacts are small session files; cap the form well below this.
const maxUploadBytes = 16 << 20

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.accounts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		list, err := handler.Accounts(cont.TenantId(r.Context()))
		if err != nil {
			logger.Error("list accounts", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List accounts failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

// Health returns the latest receiver probe snapshot for the tenant.
func Health(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(handler.AccountHealth(cont.TenantId(r.Context()))))
	}
}

// Upload accepts a multipart form with a .session file and a .json metadata
// file and records the account in pending state.
func Upload(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.accounts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			logger.Error("parse multipart form", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Expected multipart form with session and metadata files"))
			return
		}

		session, sessionName, err := formFile(r, "session_file")
		if err != nil {
			logger.Error("read session file", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Session file: %v", err)))
			return
		}
		metadata, metadataName, err := formFile(r, "json_file")
		if err != nil {
			logger.Error("read metadata file", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Metadata file: %v", err)))
			return
		}
		name := r.FormValue("name")

		account, err := handler.UploadAccount(cont.TenantId(r.Context()), name, sessionName, session, metadataName, metadata)
		if err != nil {
			logger.Error("upload account", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Upload: %v", err)))
			return
		}
		logger.With(slog.String("account", account.Id)).Info("account uploaded")

		render.JSON(w, r, response.Ok(account))
	}
}

func Activate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.accounts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		account, err := handler.ActivateAccount(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("activate account", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Activate: %v", err)))
			return
		}
		logger.Info("account activated")

		render.JSON(w, r, response.Ok(account))
	}
}

func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.accounts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		account, err := handler.DeactivateAccount(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("deactivate account", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Deactivate: %v", err)))
			return
		}
		logger.Info("account deactivated")

		render.JSON(w, r, response.Ok(account))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.accounts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		err := handler.DeleteAccount(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("delete account", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete: %v", err)))
			return
		}
		logger.Info("account deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}

func formFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing form field %s", field)
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}
