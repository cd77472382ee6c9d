package reporting

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/activecm/rita-threats/datatypes/threat"
	htmlTempl "github.com/activecm/rita-threats/reporting/templates"
	"github.com/activecm/rita-threats/resources"
	"github.com/activecm/rita-threats/threatlist"
	"github.com/activecm/rita-threats/util"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
)

type (
	// Page is the data behind one kind's page
	Page struct {
		View threatlist.View
	}

	// report is handed to every template
	report struct {
		BaseURL   string
		Generated string
		Kinds     []threat.Kind
		Pages     []Page
		Page      Page
	}
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// PrintHTML loads every kind, reveals it the given number of times and writes
// one page per kind plus an index into a new directory named after outBase.
// A kind that fails to load still gets a page carrying the error message.
// Progress is drawn on progress. The directory written is returned.
func PrintHTML(ctx context.Context, res *resources.Resources, kinds []threat.Kind, reveals int, outBase string, progress io.Writer) (string, error) {
	if len(kinds) == 0 {
		return "", fmt.Errorf("no threat kinds are enabled")
	}

	outFolder := util.UniquePath(outBase)
	if err := os.MkdirAll(outFolder, 0755); err != nil {
		return "", err
	}

	rep := report{
		BaseURL:   res.Config.R.API.BaseURL.String(),
		Generated: time.Now().Format(time.RFC1123),
		Kinds:     kinds,
	}

	p := mpb.New(mpb.WithWidth(20), mpb.WithOutput(progress))
	bar := p.AddBar(int64(len(kinds)),
		mpb.PrependDecorators(
			decor.Name("\t[-] Loading threats:", decor.WC{W: 30, C: decor.DidentRight}),
			decor.CountersNoUnit(" %d / %d ", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	for _, kind := range kinds {
		start := time.Now()
		rep.Pages = append(rep.Pages, Page{View: loadView(ctx, res, kind, reveals)})
		bar.IncrBy(1, time.Since(start))
	}
	p.Wait()

	if err := ioutil.WriteFile(filepath.Join(outFolder, "style.css"), htmlTempl.CSStempl, 0644); err != nil {
		return outFolder, err
	}

	if err := writeTemplate(filepath.Join(outFolder, "index.html"), htmlTempl.Hometempl, rep); err != nil {
		return outFolder, err
	}

	for _, page := range rep.Pages {
		rep.Page = page
		path := filepath.Join(outFolder, page.View.Kind.Name+".html")
		if err := writeTemplate(path, htmlTempl.KindTempl, rep); err != nil {
			return outFolder, err
		}
	}
	return outFolder, nil
}

// loadView builds and loads the list of one kind. Failures are carried in the
// view rather than aborting the report
func loadView(ctx context.Context, res *resources.Resources, kind threat.Kind, reveals int) threatlist.View {
	list, err := res.NewList(kind.Name)
	if err != nil {
		return threatlist.View{Kind: kind, State: threatlist.Error, Err: err}
	}
	if err := list.Load(ctx); err != nil {
		// the snapshot carries the failure onto the page
		res.Log.WithField("kind", kind.Name).Debug("Reporting on a list that failed to load")
	}
	for i := 0; i < reveals; i++ {
		list.Reveal()
	}
	return list.Snapshot()
}

func writeTemplate(path, tmpl string, data interface{}) error {
	out, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(tmpl)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return out.Execute(f, data)
}
