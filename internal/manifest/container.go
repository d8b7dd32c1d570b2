package manifest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// AddedEntry announces a project whose node metadata was (re)loaded.
// The map replaces any previous map for the same root wholesale.
type AddedEntry struct {
	ProjectRoot string
	Nodes       NodeMetaMap
}

// RemovedEntry announces a project whose metadata is gone.
type RemovedEntry struct {
	ProjectRoot string
}

// ChangedEvent carries manifest cache changes. Either list may be empty.
type ChangedEvent struct {
	Added   []AddedEntry
	Removed []RemovedEntry
}

// Subscriber receives manifest change events. Subscribers are invoked
// synchronously and in order; no two events are delivered concurrently.
type Subscriber func(ChangedEvent)

// debounceDelay coalesces bursts of manifest writes (dbt rewrites the
// artifact in several chunks).
const debounceDelay = 100 * time.Millisecond

// Container is the authoritative manifest cache. It loads each registered
// project's manifest artifact, re-loads it on file changes, and broadcasts
// ChangedEvents to subscribers.
type Container struct {
	mu       sync.RWMutex
	projects map[string]string      // project root -> manifest path
	nodes    map[string]NodeMetaMap // project root -> loaded metadata

	subMu      sync.Mutex
	subs       map[int]Subscriber
	nextSubID  int
	dispatchMu sync.Mutex // serializes event delivery

	// Nudges a running Watch to re-read the project set.
	resync chan struct{}

	logger *slog.Logger
}

// NewContainer creates an empty container.
func NewContainer(logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		projects: make(map[string]string),
		nodes:    make(map[string]NodeMetaMap),
		subs:     make(map[int]Subscriber),
		resync:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// Subscribe registers fn for change events and returns an unsubscribe func.
// The subscriber immediately receives an Added event for every project the
// container already knows about, so late subscribers start consistent.
func (c *Container) Subscribe(fn Subscriber) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()

	c.mu.RLock()
	var added []AddedEntry
	for root, nodes := range c.nodes {
		added = append(added, AddedEntry{ProjectRoot: root, Nodes: nodes})
	}
	c.mu.RUnlock()
	if len(added) > 0 {
		// Replay goes to the new subscriber only; everyone else already has
		// this state.
		c.deliver(ChangedEvent{Added: added}, []Subscriber{fn})
	}

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// AddProject registers a project root and loads its manifest. A missing or
// unparseable manifest is logged but leaves the project registered so the
// watcher can pick it up once dbt produces the artifact.
func (c *Container) AddProject(root, manifestPath string) {
	if manifestPath == "" {
		manifestPath = filepath.Join(root, filepath.FromSlash(DefaultPath))
	}

	c.mu.Lock()
	c.projects[root] = manifestPath
	c.mu.Unlock()

	c.reload(root)
	c.signalResync()
}

// RemoveProject unregisters a project and broadcasts its removal.
func (c *Container) RemoveProject(root string) {
	c.mu.Lock()
	_, known := c.projects[root]
	delete(c.projects, root)
	delete(c.nodes, root)
	c.mu.Unlock()

	if known {
		c.broadcast(ChangedEvent{Removed: []RemovedEntry{{ProjectRoot: root}}})
		c.signalResync()
	}
}

// signalResync nudges a running Watch to pick up project-set changes. The
// channel holds one pending token so the send never blocks.
func (c *Container) signalResync() {
	select {
	case c.resync <- struct{}{}:
	default:
	}
}

// Nodes returns the loaded metadata for a project root, or nil.
func (c *Container) Nodes(root string) NodeMetaMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodes[root]
}

// Roots returns the registered project roots.
func (c *Container) Roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roots := make([]string, 0, len(c.projects))
	for root := range c.projects {
		roots = append(roots, root)
	}
	return roots
}

// reload re-reads a project's manifest and broadcasts the fresh map.
func (c *Container) reload(root string) {
	c.mu.RLock()
	manifestPath, ok := c.projects[root]
	c.mu.RUnlock()
	if !ok {
		return
	}

	nodes, err := ParseFile(manifestPath)
	if err != nil {
		c.logger.Warn("manifest not loaded", "project", root, "error", err)
		return
	}

	c.mu.Lock()
	c.nodes[root] = nodes
	c.mu.Unlock()

	c.logger.Info("manifest loaded", "project", root, "models", len(nodes))
	c.broadcast(ChangedEvent{Added: []AddedEntry{{ProjectRoot: root, Nodes: nodes}}})
}

// dropNodes forgets a project's metadata (the project stays registered) and
// broadcasts the removal.
func (c *Container) dropNodes(root string) {
	c.mu.Lock()
	_, had := c.nodes[root]
	delete(c.nodes, root)
	c.mu.Unlock()

	if had {
		c.broadcast(ChangedEvent{Removed: []RemovedEntry{{ProjectRoot: root}}})
	}
}

// broadcast delivers an event to all subscribers.
func (c *Container) broadcast(ev ChangedEvent) {
	c.subMu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	c.deliver(ev, subs)
}

// deliver invokes the given subscribers under the dispatch lock, so no
// subscriber ever observes interleaved events.
func (c *Container) deliver(ev ChangedEvent, subs []Subscriber) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Watch blocks until ctx is done, reloading manifests as they change on disk.
// Projects registered while Watch runs are picked up via the resync channel,
// so starting the watcher before AddProject is fine.
func (c *Container) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	manifestByPath := make(map[string]string) // manifest path -> project root
	watched := make(map[string]bool)          // directories armed on the watcher

	// arm refreshes the path index from the current project set and adds
	// watches for any paths not yet covered. Watches for removed projects are
	// left in place; their events no longer match the index and are ignored.
	arm := func() {
		c.mu.RLock()
		snapshot := make(map[string]string, len(c.projects))
		for root, manifestPath := range c.projects {
			snapshot[root] = manifestPath
		}
		c.mu.RUnlock()

		manifestByPath = make(map[string]string, len(snapshot))
		for root, manifestPath := range snapshot {
			manifestByPath[manifestPath] = root

			// Watch the artifact's directory when it exists, and the project
			// root so we notice the directory being created later.
			targetDir := filepath.Dir(manifestPath)
			if !watched[targetDir] {
				if err := watcher.Add(targetDir); err != nil {
					c.logger.Debug("target directory not watchable yet", "project", root, "error", err)
				} else {
					watched[targetDir] = true
				}
			}
			if !watched[root] {
				if err := watcher.Add(root); err != nil {
					c.logger.Warn("project root not watchable", "project", root, "error", err)
				} else {
					watched[root] = true
				}
			}
		}
	}
	arm()

	timers := make(map[string]*time.Timer) // project root -> debounce timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-c.resync:
			arm()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if root, isManifest := manifestByPath[event.Name]; isManifest {
				switch {
				case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
					if t := timers[root]; t != nil {
						t.Stop()
					}
					timers[root] = time.AfterFunc(debounceDelay, func() {
						c.logger.Debug("manifest changed", "project", root)
						c.reload(root)
					})
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					c.logger.Debug("manifest removed", "project", root)
					c.dropNodes(root)
				}
				continue
			}

			// A target directory appearing means the manifest may follow.
			if event.Op&fsnotify.Create != 0 {
				for manifestPath, root := range manifestByPath {
					if event.Name == filepath.Dir(manifestPath) {
						if err := watcher.Add(event.Name); err == nil {
							watched[event.Name] = true
							c.reload(root)
						}
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("manifest watcher error", "error", err)
		}
	}
}
