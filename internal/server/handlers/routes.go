package handlers

import "net/http"

// Routes registers the remote sync API on mux
func Routes(mux *http.ServeMux, datasets *DatasetHandler, health *HealthHandler) {
	mux.HandleFunc("GET /api/v1/health", health.Health)

	mux.HandleFunc("PUT /api/v1/datasets/{dataset}", datasets.Register)
	mux.HandleFunc("DELETE /api/v1/datasets/{dataset}", datasets.Remove)

	mux.HandleFunc("GET /api/v1/datasets/{dataset}/records", datasets.ListRecords)
	mux.HandleFunc("POST /api/v1/datasets/{dataset}/records", datasets.CreateRecord)
	mux.HandleFunc("PUT /api/v1/datasets/{dataset}/records/{uid}", datasets.UpdateRecord)
	mux.HandleFunc("DELETE /api/v1/datasets/{dataset}/records/{uid}", datasets.DeleteRecord)
}
