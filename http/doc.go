// Package http provides the HTTP API of the file storage service.
//
// # Routes
//
//	POST /user/register           create an account
//	POST /user/auth               exchange credentials for a bearer token
//	GET  /file_storage/files          list the caller's files
//	POST /file_storage/files/upload   upload a multipart "file" part
//	GET  /file_storage/files/download download by filepath or file_id
//	GET  /service/ping            dependency latencies
//	GET  /metrics                 Prometheus exposition
//
// Routes under /file_storage require a bearer token, passed as
// "Authorization: Bearer <token>" or as the "token" query parameter.
//
// Errors are JSON objects with "error" and "message" fields. HandleError
// maps the sentinel errors of the filestorage package to status codes.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    MaxUploadSize:  100 << 20,
//	    RequestTimeout: 30 * time.Second,
//	}, authService, fileService, healthService)
//	http.ListenAndServe(":8080", handler.Router())
package http
