// Package intake accepts internship applications: a few contact fields plus
// a résumé upload. The résumé is written to disk and the metadata is stored
// through the storage repository.
//
// Client holds the browser-side half of the same contract and validates
// locally before anything is sent.
package intake
