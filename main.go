/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/cuongthieu-itme/product-workflow-sub002/cmd"

func main() {
	cmd.Execute()
}
