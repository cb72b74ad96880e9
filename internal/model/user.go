package model

type User struct {
	ID        int64
	Login     string
	Password  []byte
	FirstName string
	LastName  string
}

func (u User) DisplayName() string {
	return u.LastName + " " + u.FirstName
}
