package session

// opCacheCapacity bounds the idempotent-response cache; the oldest entry
// is evicted first past capacity.
const opCacheCapacity = 5000

type cacheKey struct {
	docID       string
	baseVersion int
	opID        string
	page        int
}

// opCache is a bounded FIFO map of cached responses. It is not
// self-locking: the owning session's mutex guards all access.
type opCache struct {
	max     int
	entries map[cacheKey]*Response
	order   []cacheKey
}

func newOpCache(max int) *opCache {
	return &opCache{
		max:     max,
		entries: make(map[cacheKey]*Response),
	}
}

func (c *opCache) get(k cacheKey) (*Response, bool) {
	resp, ok := c.entries[k]
	return resp, ok
}

// put stores a response under k. First write wins: a repeated key is not
// overwritten, so a replayed operation returns the original payload.
func (c *opCache) put(k cacheKey, resp *Response) {
	if _, exists := c.entries[k]; exists {
		return
	}
	c.entries[k] = resp
	c.order = append(c.order, k)
	if len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *opCache) len() int {
	return len(c.entries)
}
