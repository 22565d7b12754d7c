package batch

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/batchtrack/batchtrack/internal/platform/request"
	"github.com/batchtrack/batchtrack/internal/platform/respond"
	"github.com/batchtrack/batchtrack/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listBatches)
	router.Post("/", handler.createBatch)
	router.Get("/slug/{slug}", handler.getBatchBySlug)
	router.Get("/{id}", handler.getBatch)
	router.Patch("/{id}", handler.updateBatch)
	router.Delete("/{id}", handler.deleteBatch)

	router.Get("/{id}/logs", handler.listCuringLogs)
	router.Post("/{id}/logs", handler.addCuringLog)
}

func (handler *Handler) listBatches(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	filter := Filter{
		Query: request.URL.Query().Get("q"),
		Stage: request.URL.Query().Get("stage"),
	}

	batches, total, err := handler.service.ListBatches(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, batches, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) getBatch(writer http.ResponseWriter, request *http.Request) {
	batch, err := handler.service.GetBatch(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, batch)
}

func (handler *Handler) getBatchBySlug(writer http.ResponseWriter, request *http.Request) {
	batch, err := handler.service.GetBatchBySlug(request.Context(), requestutil.ID(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, batch)
}

func (handler *Handler) createBatch(writer http.ResponseWriter, request *http.Request) {
	var input Batch
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.CreateBatch(request.Context(), &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, input)
}

func (handler *Handler) updateBatch(writer http.ResponseWriter, request *http.Request) {
	var input Batch
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.UpdateBatch(request.Context(), requestutil.ID(request, "id"), &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, input)
}

func (handler *Handler) deleteBatch(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteBatch(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) listCuringLogs(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	logs, total, err := handler.service.ListCuringLogs(request.Context(), requestutil.ID(request, "id"), paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, logs, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) addCuringLog(writer http.ResponseWriter, request *http.Request) {
	var input CuringLog
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.AddCuringLog(request.Context(), requestutil.ID(request, "id"), &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, input)
}
