package api

/*
This file defines the collaborators the typed value store talks to but does
not implement. Platform integrations (an OS keychain, a preferences daemon,
a login session) live outside this module and plug in through these
contracts.
*/

/*
IdentityProvider tells the store who the current user is.

BEHAVIOR:
---------
- Returns the user id and true while someone is signed in
- Returns "" and false otherwise

Scoped values are keyed by this id, so two users never see each other's
data. The provider is consulted on every scoped read and write; it must be
safe for concurrent use.
*/
type IdentityProvider interface {
	Identity() (string, bool)
}

/*
CredentialStore holds small secrets, addressed by service and account.

BEHAVIOR:
---------
- Read returns the stored bytes and true, or false when nothing is stored.
  A missing item is not an error.
- Write creates or replaces the item
- Delete removes the item; deleting a missing item is not an error
- Accounts lists the accounts holding an item for service

Errors are reserved for a store that cannot be reached or refuses access.
*/
type CredentialStore interface {
	Read(service, account string) ([]byte, bool, error)
	Write(service, account string, data []byte) error
	Delete(service, account string) error
	Accounts(service string) ([]string, error)
}

/*
PreferencesStore is a flat key-value store of small settings.

Values are kept as handed in; the store does not encode them and does not
expire them. Keys returns every key currently set, which is how per-user
keys are found on reset.
*/
type PreferencesStore interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Remove(key string)
	RemoveAll()
	Keys() []string
}
