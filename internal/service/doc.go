// Package service wires the reconthing server together.
//
// A Service owns every long lived component built from model.Config:
//
//	store.Store        results, sqlite or postgres
//	task.Memory        task registry, swept by a gocron job
//	pipeline.Dispatcher  background pipelines over the external tools
//	api router         gin handler served by an http.Server
//
// Do serves until its context ends, then shuts down in order: the HTTP
// server stops accepting requests, running pipelines get the shutdown
// timeout to finish, the rest are aborted and marked failed, and the store
// is closed last.
package service
