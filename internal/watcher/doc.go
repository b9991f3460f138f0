// Package watcher runs one build loop per asset group. Each loop fires once
// on start, then re-runs its task whenever a file matching the group's
// patterns changes, and asks for a browser reload after every run.
//
// Runs of one group never overlap. Changes that arrive while a run is in
// progress collapse into a single follow-up run. A change only ever
// triggers the groups whose patterns match it.
package watcher
