package view

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/joaovieira77/contactForm/internal/contact"
)

// PageOptions configures the full document.
type PageOptions struct {
	Title string
	// LivePath is the websocket endpoint. Empty disables the live script and
	// the form falls back to plain POST submits.
	LivePath string
}

// Page renders a complete HTML document around Form.
func Page(snap contact.Snapshot, opts PageOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := opts.Title
		if title == "" {
			title = Heading
		}

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><style>%s</style></head><body><main class="contact">`,
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}

		if err := Form(snap).Render(ctx, w); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `</main>`); err != nil {
			return err
		}

		if opts.LivePath != "" {
			if err := LiveScript(opts.LivePath).Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// LiveScript wires the form to the websocket endpoint at path. Edits are sent
// as they happen; submits are intercepted and sent as messages; server pushes
// either replace the form or patch the inline errors.
func LiveScript(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		names := make([]string, 0, len(Specs))
		for _, spec := range Specs {
			names = append(names, string(spec.Field))
		}
		fieldsJSON, err := json.Marshal(names)
		if err != nil {
			return err
		}
		pathJSON, err := json.Marshal(path)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(w, `<script>%s</script>`, fmt.Sprintf(liveScript, pathJSON, fieldsJSON, FormID))
		return err
	})
}

const pageStyle = `.contact{display:flex;justify-content:center;padding:2rem}` +
	`.contact-form{width:100%;max-width:42rem}` +
	`.contact-form__field{margin-bottom:1rem}` +
	`.contact-form__input{width:100%}` +
	`.contact-form__input--error{border-color:#f87171}` +
	`.contact-form__error{color:#ef4444;font-size:.75rem}` +
	`.contact-form__success{color:#16a34a;text-align:center}`

const liveScript = `(function(){
var path=%s,fields=%s,formId=%q,ws=null;
function connect(){
var proto=location.protocol==="https:"?"wss://":"ws://";
ws=new WebSocket(proto+location.host+path);
ws.onmessage=function(ev){
var msg=JSON.parse(ev.data);
if(msg.type==="render"){var f=document.getElementById(formId);if(f){f.outerHTML=msg.content;}return;}
if(msg.type==="errors"){var errs=msg.errors||{};fields.forEach(function(name){
var p=document.getElementById("error-"+name),input=document.getElementById(name),e=errs[name]||"";
if(p){p.textContent=e;p.hidden=!e;}
if(input){input.classList.toggle("contact-form__input--error",!!e);}
});}
};
ws.onclose=function(){ws=null;setTimeout(connect,1000);};
}
function live(){return ws!==null&&ws.readyState===1;}
document.addEventListener("input",function(ev){
var t=ev.target;if(!live()||!t.form||t.form.id!==formId){return;}
ws.send(JSON.stringify({type:"edit",field:t.name,value:t.value}));
});
document.addEventListener("submit",function(ev){
if(!live()||ev.target.id!==formId){return;}
ev.preventDefault();ws.send(JSON.stringify({type:"submit"}));
});
connect();
})();`
