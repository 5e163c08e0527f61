package storage

import (
	"context"
	"fmt"
)

// NewKeyStore stores service credentials as settings, so one database holds
// the keys of every configured account.
func (s *Store) NewKeyStore(service, account string) *keyStore {
	return &keyStore{
		store:   s,
		service: service,
		account: account,
	}
}

type keyStore struct {
	store   *Store
	service string
	account string
}

func (k *keyStore) GetKey(ctx context.Context) (string, error) {
	setting, err := k.store.GetSetting(ctx, fmt.Sprintf("%s/%s/key", k.service, k.account))
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (k *keyStore) SetKey(ctx context.Context, key string) error {
	return k.store.SetSetting(ctx, &Setting{
		ID:    fmt.Sprintf("%s/%s/key", k.service, k.account),
		Value: key,
	})
}
