package engine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"booking/entities"
)

const userPrefix = "user:"

func userKey(id int64) []byte {
	// zero padded so keys sort by id
	return []byte(fmt.Sprintf("%s%020d", userPrefix, id))
}

// SaveUser writes u, replacing any previous record with the same id.
func (e *Engine) SaveUser(u *entities.User) error {
	if e.Db == nil {
		return errors.New("database not initialized")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(u); err != nil {
		return errors.Wrapf(err, "encode user %d", u.ID)
	}
	return e.Db.Set(userKey(u.ID), buf.Bytes(), pebble.Sync)
}

// LoadUsers returns every stored user ordered by id.
func (e *Engine) LoadUsers() ([]*entities.User, error) {
	if e.Db == nil {
		return nil, errors.New("database not initialized")
	}
	iter, err := e.Db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(userPrefix),
		UpperBound: []byte("user;"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterate users")
	}
	defer iter.Close()

	var users []*entities.User
	for ok := iter.First(); ok; ok = iter.Next() {
		u := &entities.User{}
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(u); err != nil {
			return nil, errors.Wrapf(err, "decode %s", iter.Key())
		}
		users = append(users, u)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate users")
	}
	return users, nil
}
