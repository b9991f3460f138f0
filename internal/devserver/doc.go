// Package devserver serves the build output during development. HTML pages
// get a small live-reload client injected; Reload broadcasts to every
// connected page over socket.io.
package devserver
