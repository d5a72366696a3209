package curi_test

import (
	"fmt"

	"github.com/openfroyo/urigraph/pkg/curi"
)

func ExampleParse() {
	u, err := curi.Parse("make:Button#style+title=Home+icon=(repr:png+value=local:icon)")
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fragment, _ := u.Fragment()
	fmt.Println(u.Scheme(), u.Name(), fragment)
	for _, p := range u.Params() {
		if nested, ok := p.Value.(*curi.URI); ok {
			fmt.Printf("%s -> %s uri %s\n", p.Name, nested.Scheme(), nested)
			continue
		}
		fmt.Printf("%s = %v\n", p.Name, p.Value)
	}
	// Output:
	// make Button style
	// title = Home
	// icon -> repr uri repr:png+value=local:icon
}

func ExampleURI_String() {
	u := curi.New("file", "conf/a b.yaml", curi.Params{
		{Name: "note", Value: "50% off"},
		{Name: "next", Value: curi.MustParse("make:Page+n=2")},
	})
	fmt.Println(u)
	// Output: file:conf/a b.yaml+note=50%25 off+next=(make:Page+n=2)
}
