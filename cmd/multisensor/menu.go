package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/monitor"
	"github.com/afroash/multisensor/internal/report"
)

// menu is the interactive front end over one session
type menu struct {
	session     *monitor.Session
	in          *bufio.Scanner
	out         io.Writer
	defaultFile string
}

func newMenu(session *monitor.Session, in io.Reader, out io.Writer, defaultFile string) *menu {
	return &menu{
		session:     session,
		in:          bufio.NewScanner(in),
		out:         out,
		defaultFile: defaultFile,
	}
}

// run loops until the user exits or input ends
func (m *menu) run() error {
	for {
		m.show()
		line, ok := m.readLine()
		if !ok {
			fmt.Fprintln(m.out, "\nExiting program.")
			return m.in.Err()
		}

		choice, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(m.out, "Invalid input. Try again.")
			continue
		}

		switch choice {
		case 1:
			m.handleReadMeasurements()
		case 2:
			report.Statistics(m.out, m.session)
		case 3:
			report.Measurements(m.out, m.session)
		case 4:
			m.handleSave()
		case 5:
			m.handleLoad()
		case 6:
			m.handleConfigureThreshold()
		case 7:
			report.Alarms(m.out, m.session.Alarms())
		case 8:
			fmt.Fprintln(m.out, "Exiting program.")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid option. Try again.")
		}
	}
}

func (m *menu) show() {
	fmt.Fprint(m.out, "\n=====  SENSOR MENU  =====\n"+
		"[1] Read new measurements\n"+
		"[2] Show statistics\n"+
		"[3] Show all measurements\n"+
		"[4] Save measurements to file\n"+
		"[5] Load measurements from file\n"+
		"[6] Configure threshold\n"+
		"[7] Show alarms\n"+
		"[8] Exit\n"+
		"Select option: ")
}

// readLine returns the next trimmed input line, false at end of input
func (m *menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *menu) prompt(text string) (string, bool) {
	fmt.Fprint(m.out, text)
	return m.readLine()
}

func (m *menu) handleReadMeasurements() {
	fmt.Fprintln(m.out, "\nReading new measurements...")
	cycle := m.session.TakeReadings()
	report.Cycle(m.out, cycle.Measurements, cycle.Alarms)
	fmt.Fprintln(m.out, "Measurements added successfully.")
}

func (m *menu) handleSave() {
	name, ok := m.prompt(fmt.Sprintf("Enter filename to save (e.g. %s): ", m.defaultFile))
	if !ok {
		return
	}
	if name == "" {
		name = m.defaultFile
	}
	if err := m.session.Save(name); err != nil {
		fmt.Fprintf(m.out, "Could not save measurements: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "Data saved to %s\n", name)
}

func (m *menu) handleLoad() {
	name, ok := m.prompt("Enter filename to load: ")
	if !ok {
		return
	}
	if name == "" {
		name = m.defaultFile
	}
	res, err := m.session.Load(name)
	if err != nil {
		fmt.Fprintf(m.out, "Could not load measurements: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "Data loaded from %s (%d rows, %d skipped)\n", name, res.Loaded, res.Skipped)
}

func (m *menu) handleConfigureThreshold() {
	fmt.Fprintln(m.out, "\n--- CONFIGURE THRESHOLD ---")
	fmt.Fprintln(m.out, "Available sensors:")
	sensors := m.session.Sensors()
	for i, s := range sensors {
		fmt.Fprintf(m.out, "[%d] %s\n", i+1, s.Name)
	}

	line, ok := m.prompt(fmt.Sprintf("Select sensor (1-%d): ", len(sensors)))
	if !ok {
		return
	}
	choice, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintln(m.out, "Invalid choice.")
		return
	}
	sen, err := m.session.SelectSensor(choice - 1)
	if err != nil {
		fmt.Fprintln(m.out, "Invalid choice.")
		return
	}

	line, ok = m.prompt("Enter threshold limit: ")
	if !ok {
		return
	}
	limit, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Fprintln(m.out, "Invalid limit.")
		return
	}

	line, ok = m.prompt("Alarm when:\n[1] Value goes OVER limit\n[2] Value goes UNDER limit\nChoice: ")
	if !ok {
		return
	}
	var direction models.Direction
	switch line {
	case "1":
		direction = models.DirectionOver
	case "2":
		direction = models.DirectionUnder
	default:
		fmt.Fprintln(m.out, "Invalid choice.")
		return
	}

	t, err := m.session.ConfigureThreshold(sen.Name(), limit, direction)
	if err != nil {
		fmt.Fprintf(m.out, "Could not configure threshold: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "Threshold configured for %s: %s %g\n", t.SensorName, t.Direction.Symbol(), t.Limit)
}
