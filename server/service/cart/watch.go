package cart

import (
	"strings"
	"sync"

	"github.com/hrygo/cartsync/store/cache"
)

// watcher follows the fixed per-user keys plus the detail key of every
// recipe cart the user currently has. The recipe detail subscriptions are
// resynced each time the recipe cart list turns fresh.
type watcher struct {
	s      *service
	userID string
	fn     cache.Listener

	mu      sync.Mutex
	stopped bool
	subs    map[string]func()
}

func (s *service) Watch(userID string, fn cache.Listener) func() {
	w := &watcher{s: s, userID: userID, fn: fn, subs: map[string]func(){}}
	w.mu.Lock()
	w.subscribeLocked(PersonalCartKey(userID), fn)
	w.subscribeLocked(PersonalItemsKey(userID), fn)
	w.subscribeLocked(RecipeCartsKey(userID), w.onRecipeCarts)
	w.mu.Unlock()
	w.sync()
	return w.stop
}

func (w *watcher) subscribeLocked(key string, fn cache.Listener) {
	if _, ok := w.subs[key]; ok {
		return
	}
	w.subs[key] = w.s.cache.Subscribe(key, fn)
}

func (w *watcher) onRecipeCarts(ev cache.Event) {
	w.fn(ev)
	if ev.To == cache.Fresh {
		w.sync()
	}
}

// sync subscribes to the detail keys of the cached recipe carts and drops
// subscriptions of carts that are gone.
func (w *watcher) sync() {
	entry := w.s.recipeCartsQuery(w.userID).Peek()
	if !entry.Present {
		return
	}
	want := make(map[string]bool, len(entry.Value))
	for _, rc := range entry.Value {
		want[RecipeItemsKey(rc.ID)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	for key := range want {
		w.subscribeLocked(key, w.fn)
	}
	for key, unsubscribe := range w.subs {
		if isRecipeItemsKey(key) && !want[key] {
			unsubscribe()
			delete(w.subs, key)
		}
	}
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	for key, unsubscribe := range w.subs {
		unsubscribe()
		delete(w.subs, key)
	}
}

func isRecipeItemsKey(key string) bool {
	return strings.HasPrefix(key, recipeItemsPrefix)
}
