package form

// Attributes written into the live DOM by AnnotateScript.
const (
	RefAttr     = "data-jobaru-ref"
	VisibleAttr = "data-jobaru-visible"
	ValueAttr   = "data-jobaru-value"
	CheckedAttr = "data-jobaru-checked"
)

// AnnotateScript tags every interactive element with a fresh reference plus its
// live visibility, value and checked state, so a serialized snapshot carries
// what static markup alone cannot. It returns the number of tagged elements.
const AnnotateScript = `(() => {
	const sel = 'a, button, input, textarea, select, fieldset, [role="button"], [role="dialog"], ' +
		'.jobs-easy-apply-content, .artdeco-inline-feedback__message, [data-view-name]';
	document.querySelectorAll('[` + RefAttr + `]').forEach(el => el.removeAttribute('` + RefAttr + `'));
	let n = 0;
	document.querySelectorAll(sel).forEach(el => {
		n++;
		el.setAttribute('` + RefAttr + `', String(n));
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const visible = style.display !== 'none' && style.visibility !== 'hidden' &&
			(rect.width > 0 || rect.height > 0);
		el.setAttribute('` + VisibleAttr + `', visible ? '1' : '0');
		if (el.tagName !== 'BUTTON' && 'value' in el && el.value !== undefined) {
			el.setAttribute('` + ValueAttr + `', el.value == null ? '' : String(el.value));
		}
		if (el.type === 'radio' || el.type === 'checkbox') {
			el.setAttribute('` + CheckedAttr + `', el.checked ? '1' : '0');
		}
	});
	return n;
})()`
