/*
The package proto implements the line protocol of the TC-1000 PID temperature controller.

The controller periodically emits one status line, terminated by a newline, with one to three
space separated fields:

	<current>                   current temperature in °C
	<current> <flag>            flag 0 = Celsius display, 1 = Fahrenheit display
	<current> <flag> <target>   target temperature in the unit indicated by flag

Commands to the controller are single lines as well: a decimal number sets the target
temperature in °C, the tokens "C" and "F" switch the display unit.
*/
package proto
