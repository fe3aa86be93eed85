package filewatcher

import (
	"github.com/fsnotify/fsnotify"
)

// EventHandler is called for every filesystem event on a watched path.
type EventHandler func(fsnotify.Event)

// ErrorHandler is called for watcher errors.
type ErrorHandler func(error)

// ClientInt watches files for changes. The serve mode uses it to observe
// rotation of the projected federated token file; the token contents are
// never read by the watcher itself.
type ClientInt interface {
	Add(path string) error
	Start(exit <-chan struct{})
}

// Client implements ClientInt on top of fsnotify.
type Client struct {
	watcher      *fsnotify.Watcher
	eventHandler EventHandler
	errorHandler ErrorHandler
}

// NewFileWatcher returns a file watcher that dispatches events and errors
// to the given handlers.
func NewFileWatcher(eventHandler EventHandler, errorHandler ErrorHandler) (ClientInt, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Client{
		watcher:      watcher,
		eventHandler: eventHandler,
		errorHandler: errorHandler,
	}, nil
}

// Add starts watching the given path.
func (c *Client) Add(path string) error {
	return c.watcher.Add(path)
}

// Start dispatches events until exit is closed. It blocks; run it on its
// own goroutine.
func (c *Client) Start(exit <-chan struct{}) {
	defer c.watcher.Close()
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.eventHandler(event)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.errorHandler(err)
		case <-exit:
			return
		}
	}
}
