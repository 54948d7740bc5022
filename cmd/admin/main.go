package main

import "github.com/dmitrijs2005/folioguard/internal/admincli"

func main() {
	admincli.Execute()
}
