package demo

type Base struct {
	ID   int
	Note string
}

type Person struct {
	Base
	Name  string
	Age   int
	email string
}

func (p *Person) GetName() string { return p.Name }

func (p *Person) IsAdult() bool { return p.Age >= 18 }

func (p *Person) SetAge(age int) { p.Age = age }

func (p *Person) Email() (string, error) { return p.email, nil }

func (p *Person) Tags(prefix string, tags ...string) []string { return tags }

type Bag struct{ items []string }

func (b Bag) Len() int { return len(b.items) }

type Names []string

type Grid [3]int
