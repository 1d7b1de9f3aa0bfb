/*

Process of running a program

Program Text ->
	lex ->
Tokens ->
	parse ->
Abstract Syntax Tree (ast) ->
	encode / decode (optional, JSON) ->
Abstract Syntax Tree (ast) ->
	load ->
Function Table ->
	eval ->
Exit Value

Lex and parse errors are collected and reported together;
a tree with errors is never run.
Load and runtime errors stop the run at the first one.

*/
package compiler
