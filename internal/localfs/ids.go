package localfs

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrUnknownName is returned when an owner or group name has no local id.
var ErrUnknownName = errors.New("localfs: unknown user or group")

// IDCache translates between numeric ids and user/group names. Lookups
// hit the system databases once per key; concurrent misses for the same
// key are collapsed into a single lookup.
type IDCache struct {
	sf singleflight.Group

	userNames  sync.Map // uint32 -> string
	groupNames sync.Map // uint32 -> string
	userIDs    sync.Map // string -> int
	groupIDs   sync.Map // string -> int
}

// NewIDCache returns an empty cache.
func NewIDCache() *IDCache {
	return &IDCache{}
}

// UserName returns the login name for uid, or the decimal uid when the
// user database has no entry.
func (c *IDCache) UserName(uid uint32) string {
	if v, ok := c.userNames.Load(uid); ok {
		return v.(string)
	}

	key := "u:" + strconv.FormatUint(uint64(uid), 10)

	v, _, _ := c.sf.Do(key, func() (any, error) {
		id := strconv.FormatUint(uint64(uid), 10)

		name := id
		if u, err := user.LookupId(id); err == nil {
			name = u.Username
		}

		c.userNames.Store(uid, name)

		return name, nil
	})

	return v.(string)
}

// GroupName returns the name of gid, or the decimal gid when the group
// database has no entry.
func (c *IDCache) GroupName(gid uint32) string {
	if v, ok := c.groupNames.Load(gid); ok {
		return v.(string)
	}

	key := "g:" + strconv.FormatUint(uint64(gid), 10)

	v, _, _ := c.sf.Do(key, func() (any, error) {
		id := strconv.FormatUint(uint64(gid), 10)

		name := id
		if g, err := user.LookupGroupId(id); err == nil {
			name = g.Name
		}

		c.groupNames.Store(gid, name)

		return name, nil
	})

	return v.(string)
}

// UID resolves a user name. A decimal string is accepted as an id.
func (c *IDCache) UID(name string) (int, error) {
	return c.resolve(&c.userIDs, "U:"+name, name, func(n string) (string, error) {
		u, err := user.Lookup(n)
		if err != nil {
			return "", err
		}

		return u.Uid, nil
	})
}

// GID resolves a group name. A decimal string is accepted as an id.
func (c *IDCache) GID(name string) (int, error) {
	return c.resolve(&c.groupIDs, "G:"+name, name, func(n string) (string, error) {
		g, err := user.LookupGroup(n)
		if err != nil {
			return "", err
		}

		return g.Gid, nil
	})
}

func (c *IDCache) resolve(m *sync.Map, key, name string, lookup func(string) (string, error)) (int, error) {
	if v, ok := m.Load(name); ok {
		return v.(int), nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		id, lookupErr := lookup(name)
		if lookupErr != nil {
			if n, convErr := strconv.Atoi(name); convErr == nil && n >= 0 {
				m.Store(name, n)
				return n, nil
			}

			return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
		}

		n, convErr := strconv.Atoi(id)
		if convErr != nil {
			return 0, fmt.Errorf("localfs: id %q of %q: %w", id, name, convErr)
		}

		m.Store(name, n)

		return n, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int), nil
}

// ChownNames changes owner and/or group of path by name. Empty names are
// left unchanged.
func (c *IDCache) ChownNames(path, owner, group string) error {
	if owner == "" && group == "" {
		return nil
	}

	uid, gid := -1, -1

	if owner != "" {
		id, err := c.UID(owner)
		if err != nil {
			return err
		}

		uid = id
	}

	if group != "" {
		id, err := c.GID(group)
		if err != nil {
			return err
		}

		gid = id
	}

	return Chown(path, uid, gid)
}
